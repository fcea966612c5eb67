//go:build linux

package walk

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// FillMeta extracts size/ctime/mtime via a direct unix.Lstat rather than
// os.FileInfo.Sys()'s *syscall.Stat_t, mirroring the teacher's
// backend/local/metadata_linux.go preference for golang.org/x/sys/unix on
// Linux (ctime is the metadata-change time, not creation time — spec
// glossary: "ctime ... the time file metadata was last changed").
func FillMeta(n *Node, path string, info os.FileInfo) {
	n.Size = uint64(info.Size())
	n.MTime = info.ModTime().Unix()
	n.HasMeta = true

	var stat unix.Stat_t
	if err := unix.Lstat(path, &stat); err != nil {
		return
	}
	sec, nsec := stat.Ctim.Unix()
	n.CTime = time.Unix(sec, nsec).Unix()
}
