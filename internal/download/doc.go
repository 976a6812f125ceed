// Package download fetches episode audio into scratch storage.
package download
