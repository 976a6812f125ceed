// Package chunk computes playable time windows for search results.
//
// A window is a (start, end) pair in seconds meant for direct playback of
// the matching part of an episode. When a transcript is available the
// locator anchors boundaries to segment starts so playback never begins
// mid-sentence; otherwise it centers a window inside a metadata-estimated
// duration, skipping intro and outro.
package chunk
