// Command tellmemore ingests podcast episodes, processes them through the
// download/transcribe/embed pipeline, and serves semantic search over the
// stored embeddings.
package main
