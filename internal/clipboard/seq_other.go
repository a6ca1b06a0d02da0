//go:build !windows

package clipboard

import (
	"github.com/cespare/xxhash/v2"
	"golang.design/x/clipboard"
)

// changeCount has no OS sequence number to read here, so the token is a
// digest of the current text and image contents. Rewriting identical
// content is not observed as a change.
func changeCount() (uint64, error) {
	return contentToken(clipboard.Read(clipboard.FmtText), clipboard.Read(clipboard.FmtImage)), nil
}

func contentToken(text, image []byte) uint64 {
	d := xxhash.New()
	d.Write([]byte{'t'})
	d.Write(text)
	d.Write([]byte{0, 'i'})
	d.Write(image)
	return d.Sum64()
}
