/*
Package fetch glues the CLI to the loader: it fans a list of URLs out over
a bounded worker pool, drains or saves each body, and renders a per-URL
summary. All knobs arrive as functional options so the cobra layer stays a
thin flag-to-option translation.
*/
package fetch
