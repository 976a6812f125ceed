// Package runner drives one invocation of the episode processing loop.
package runner
