package cmd

import (
	"time"

	"github.com/edgequill/netload/internal/fetch"
	"github.com/edgequill/netload/pkg/context"
	"github.com/edgequill/netload/pkg/http"
	"github.com/edgequill/netload/pkg/log"
	"github.com/spf13/cobra"
)

var (
	method  = "GET"
	headers = []string{}
	data    = ""

	buffered     = false
	maxRedirects = 20
	timeout      = 3 * time.Second
	maxParallel  = 10
	slots        = 0

	insecure         = false
	forceAcceptCerts = false
	blacklistDomains = []string{}

	outputFile   = ""
	progressFlag = false
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch URL [URL...]",
	Short: "fetch one or more urls",
	Long: `fetch loads each url through the raw client engine, following 301/302
redirects up to a cap. By default bodies are streamed and discarded after
counting; with a single url you can save the body to a file or stdout.

usage:
netload fetch https://example.com/
netload fetch -X POST -d 'a=b' -H 'content-type: application/x-www-form-urlencoded' https://example.com/submit
netload fetch --buffer -O - https://example.com/small.json
`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := []fetch.FetchOption{
			fetch.Method(method),
			fetch.AddHeaders(headers),
			fetch.MaxRedirects(maxRedirects),
			fetch.Timeout(timeout),
			fetch.MaxParallel(maxParallel),
			fetch.Slots(slots),
			fetch.InsecureSkipVerify(insecure),
			fetch.ForceAcceptCerts(forceAcceptCerts),
			fetch.BlacklistDomains(blacklistDomains),
			fetch.OutputPath(outputFile),
			fetch.ShowProgress(progressFlag),
		}
		if buffered {
			opts = append(opts, fetch.Mode(http.ModeBuffer))
		}
		if data != "" {
			opts = append(opts, fetch.Body([]byte(data)))
		}

		if err := fetch.FetchURLs(context.Context(), args, opts...); err != nil {
			log.Fatal().Err(err).Msg("failed to fetch urls")
		}
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&method, "method", "X", method, "http method to use for requests")
	fetchCmd.Flags().StringSliceVarP(&headers, "header", "H", headers, "headers to add to requests")
	fetchCmd.Flags().StringVarP(&data, "data", "d", data, "request body to send")

	fetchCmd.Flags().BoolVar(&buffered, "buffer", buffered, "deliver bodies as a single buffer instead of a stream")
	fetchCmd.Flags().IntVar(&maxRedirects, "max-redirects", maxRedirects, "maximum number of redirects to follow")
	fetchCmd.Flags().DurationVarP(&timeout, "timeout", "t", timeout, "timeout for resolve, connect and handshake")
	fetchCmd.Flags().IntVarP(&maxParallel, "max-parallel", "j", maxParallel, "max number of urls to fetch at once")
	fetchCmd.Flags().IntVar(&slots, "slots", slots, "cap on loads in flight across all workers. 0 uses the default")

	fetchCmd.Flags().BoolVar(&insecure, "insecure", insecure, "skip certificate verification entirely")
	fetchCmd.Flags().BoolVar(&forceAcceptCerts, "force-accept-certs", forceAcceptCerts, "verify certificates but accept them regardless of the outcome")
	fetchCmd.Flags().StringSliceVar(&blacklistDomains, "blacklist-domain", blacklistDomains, "domains that are blacklisted for redirects. We will not follow redirects to these domains")

	fetchCmd.Flags().StringVarP(&outputFile, "output-file", "O", outputFile, "write the body here when fetching a single url. - means stdout")
	fetchCmd.Flags().BoolVar(&progressFlag, "progress", progressFlag, "show a progress bar while streaming a single url")
}
