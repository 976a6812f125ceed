// Package embedder talks to an OpenAI-compatible embeddings API.
package embedder
