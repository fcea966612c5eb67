//go:build darwin || freebsd || netbsd || openbsd

package walk

import (
	"os"
	"syscall"
	"time"
)

// FillMeta extracts size/ctime/mtime from a *nix Stat_t, mirroring
// backend/local's readTime helper: ctime is the metadata-change time, not
// creation time (spec glossary: "ctime ... the time file metadata was last
// changed"). Linux gets its own implementation (meta_linux.go) built on
// golang.org/x/sys/unix instead; BSD-family Stat_t layouts are close enough
// to the standard library's that there's no need to duplicate that here.
func FillMeta(n *Node, path string, info os.FileInfo) {
	n.Size = uint64(info.Size())
	n.MTime = info.ModTime().Unix()
	n.HasMeta = true

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	sec, nsec := stat.Ctim.Unix()
	n.CTime = time.Unix(sec, nsec).Unix()
}
