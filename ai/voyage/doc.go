// Package voyage embeds product text with the Voyage AI embeddings API.
//
// A batch is sent as one POST {input, model} to {host}/embeddings. The
// response lists vectors with the index of the input they belong to, and
// that index is passed through unchanged in ai.Embedding. Timeouts and
// connection failures are retried with core.DefaultRetryPolicy; non-2xx
// answers are returned as *StatusError without retry.
package voyage
