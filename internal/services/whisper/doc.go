// Package whisper wraps the whisper.cpp CLI for episode transcription.
package whisper
