package fetch

import (
	"context"
	"io"
	"io/ioutil"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	neterrors "github.com/edgequill/netload/pkg/errors"
	"github.com/edgequill/netload/pkg/http"
	"github.com/edgequill/netload/pkg/loader"
	"github.com/edgequill/netload/pkg/log"
	"github.com/hashicorp/go-multierror"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
)

type fetchResult struct {
	url      string
	status   int
	size     int64
	duration time.Duration
	location string
	err      error
}

// FetchURLs loads every URL through a slot-bounded loader service with up to
// MaxParallel workers, prints a summary table, and returns the aggregate of
// all per-URL failures.
func FetchURLs(ctx context.Context, urls []string, opts ...FetchOption) error {
	o := NewDefaultFetchOptions()
	for _, opt := range opts {
		opt(o)
	}

	svc := loader.NewService(o.Slots,
		loader.Mode(o.Mode),
		loader.MaxRedirects(o.MaxRedirects),
		loader.Timeout(o.Timeout),
		loader.InsecureSkipVerify(o.InsecureSkipVerify),
		loader.ForceAcceptCerts(o.ForceAcceptCerts),
		loader.VerifyCallback(o.Verify),
		loader.BlacklistRedirects(o.BlacklistDomains),
	)

	var (
		jobs    = make(chan string)
		results = make([]fetchResult, 0, len(urls))
		mu      sync.Mutex
		wg      sync.WaitGroup
	)

	workers := o.MaxParallel
	if workers > len(urls) {
		workers = len(urls)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				r := fetchOne(ctx, svc, u, o, len(urls) == 1)
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}
		}()
	}

	for _, u := range urls {
		select {
		case jobs <- u:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	writeSummary(results)

	var merr *multierror.Error
	for _, r := range results {
		if r.err != nil {
			merr = multierror.Append(merr, r.err)
			neterrors.PrintError(r.err, 0)
		}
	}
	return merr.ErrorOrNil()
}

func fetchOne(ctx context.Context, svc *loader.Service, u string, o *FetchOptions, single bool) fetchResult {
	ret := fetchResult{url: u}

	req := &loader.Request{
		URL:     u,
		Method:  o.Method,
		Headers: o.Headers,
	}
	if len(o.Body) > 0 {
		req.Sources = []http.UploadSource{http.NewBytesSource(o.Body)}
	}

	start := time.Now()
	res, err := svc.Do(ctx, req)
	if err != nil {
		ret.err = err
		ret.duration = time.Since(start)
		return ret
	}

	if res.Redirect != nil {
		// following stopped early; surface the target instead of a body
		ret.status = res.Redirect.StatusCode
		ret.location = res.Redirect.Location
		ret.duration = time.Since(start)
		return ret
	}

	resp := res.Response
	ret.status = resp.StatusCode

	dst, cleanup, err := bodyDestination(o, single)
	if err != nil {
		ret.err = err
		ret.duration = time.Since(start)
		return ret
	}
	defer cleanup()

	switch {
	case resp.Body == nil:
		// nothing arrived before EOF
	case resp.Body.Stream != nil:
		var w io.Writer = dst
		if o.ShowProgress && single {
			bar := progressbar.DefaultBytes(-1, u)
			w = io.MultiWriter(dst, bar)
		}
		n, cerr := io.Copy(w, resp.Body.Stream)
		resp.Body.Stream.Close()
		ret.size = n
		if cerr != nil {
			ret.err = cerr
		}
	default:
		n, werr := dst.Write(resp.Body.Buffer)
		ret.size = int64(n)
		if werr != nil {
			ret.err = werr
		}
	}

	resp.Release()
	ret.duration = time.Since(start)
	return ret
}

// bodyDestination picks where body bytes go: a file or stdout for a single
// URL fetch, discard otherwise
func bodyDestination(o *FetchOptions, single bool) (io.Writer, func(), error) {
	if !single || o.OutputPath == "" {
		return ioutil.Discard, func() {}, nil
	}
	if o.OutputPath == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(o.OutputPath)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func writeSummary(results []fetchResult) {
	table := tablewriter.NewWriter(os.Stderr)
	table.SetHeader([]string{"URL", "STATUS", "SIZE", "TIME", "RESULT"})
	table.SetBorder(false)

	for _, r := range results {
		outcome := "ok"
		switch {
		case r.err != nil:
			outcome = neterrors.CodeOf(r.err).String()
		case r.location != "":
			outcome = "redirect -> " + r.location
		}
		table.Append([]string{
			r.url,
			strconv.Itoa(r.status),
			humanize.Bytes(uint64(r.size)),
			r.duration.Round(time.Millisecond).String(),
			outcome,
		})
		log.Stdout.Info().
			Str("url", r.url).
			Int("status", r.status).
			Int64("bytes", r.size).
			Dur("duration", r.duration).
			Err(r.err).
			Msg("fetched")
	}
	table.Render()
}
