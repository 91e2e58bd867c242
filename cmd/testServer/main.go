package main

import (
	"bufio"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/edgequill/netload/pkg/log"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

func Index(ctx *fasthttp.RequestCtx) {
	ctx.WriteString("Welcome!")
}

func Hello(ctx *fasthttp.RequestCtx) {
	fmt.Fprintf(ctx, "Hello, %s!\n", ctx.UserValue("name"))
}

// RedirectResponder issues a 302 with an absolute location on the same host.
// The client engine does not resolve relative targets, so the scheme and
// host are always spelled out.
func RedirectResponder(ctx *fasthttp.RequestCtx) {
	dest := ctx.UserValue("dest").(string)
	ctx.SetStatusCode(302)
	ctx.Response.Header.Add("location", fmt.Sprintf("http://%s/%s", ctx.Host(), dest))
}

// MovedResponder is the 301 flavour of RedirectResponder
func MovedResponder(ctx *fasthttp.RequestCtx) {
	dest := ctx.UserValue("dest").(string)
	ctx.SetStatusCode(301)
	ctx.Response.Header.Add("location", fmt.Sprintf("http://%s/%s", ctx.Host(), dest))
}

// SizedResponder writes exactly n bytes so buffered and streamed delivery
// can be compared against a known length
func SizedResponder(ctx *fasthttp.RequestCtx) {
	n, err := strconv.Atoi(ctx.UserValue("n").(string))
	if err != nil || n < 0 {
		ctx.SetStatusCode(400)
		return
	}
	body := make([]byte, n)
	for i := range body {
		body[i] = byte('a' + i%26)
	}
	ctx.Write(body)
}

// SlowResponder dribbles the body out in small chunks to exercise a
// streaming consumer that reads slower than the server writes
func SlowResponder(ctx *fasthttp.RequestCtx) {
	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		for i := 0; i < 10; i++ {
			fmt.Fprintf(w, "chunk %d\n", i)
			w.Flush()
			time.Sleep(50 * time.Millisecond)
		}
	})
}

func EchoResponder(ctx *fasthttp.RequestCtx) {
	log.Info().
		Bytes("method", ctx.Method()).
		Bytes("uri", ctx.RequestURI()).Msg("got request")
	ctx.Write(ctx.PostBody())
}

func StatusResponder(ctx *fasthttp.RequestCtx) {
	code, err := strconv.Atoi(ctx.UserValue("code").(string))
	if err != nil || code < 100 || code > 599 {
		ctx.SetStatusCode(400)
		return
	}
	ctx.SetStatusCode(code)
	fmt.Fprintf(ctx, "status %d\n", code)
}

func main() {
	var port int
	flag.IntVar(&port, "p", 14000, "Port to start the server on")
	flag.Parse()

	r := router.New()
	r.GET("/", Index)
	r.GET("/hello/:name", Hello)
	r.GET("/redir/{dest:*}", RedirectResponder)
	r.GET("/moved/{dest:*}", MovedResponder)
	r.GET("/sized/{n}", SizedResponder)
	r.GET("/slow", SlowResponder)
	r.GET("/status/{code}", StatusResponder)
	r.POST("/echo", EchoResponder)

	host := fmt.Sprintf(":%d", port)
	log.Info().Str("addr", host).Msg("starting server")
	log.Fatal().Err(fasthttp.ListenAndServe(host, r.Handler)).Msg("failed to start server")
}
