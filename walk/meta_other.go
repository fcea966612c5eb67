//go:build windows || (!linux && !darwin && !freebsd && !netbsd && !openbsd)

package walk

import "os"

// FillMeta falls back to ModTime for both mtime and ctime on platforms
// without a Stat_t-style metadata-change timestamp.
func FillMeta(n *Node, path string, info os.FileInfo) {
	n.Size = uint64(info.Size())
	n.MTime = info.ModTime().Unix()
	n.CTime = n.MTime
	n.HasMeta = true
}
