/*
The errors package provides the categorical error type shared by the
transport, client and loader layers.

Every failure that crosses a package boundary is wrapped into an Error
carrying one of the closed set of Codes. Callers branch on the code via
CodeOf or IsCode and treat the wrapped cause as diagnostic detail only.

Usage

	import neterrors "github.com/edgequill/netload/pkg/errors"

	...

	res, err := client.Do(ctx, host, port)
	if neterrors.IsCode(err, neterrors.CodeNameNotResolved) {
		// the hostname did not resolve; retrying on a new instance is
		// up to the caller
	}

The printing utilities understand hashicorp/go-multierror aggregates and
render nested errors with indentation matching their depth.
*/
package errors
