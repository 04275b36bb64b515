package sshutil

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/sftp"
)

// sftpSession opens the SFTP subsystem on the existing connection,
// connecting first if needed. The session is kept until Close.
func (c *Client) sftpSession() (*sftp.Client, error) {
	if c.sftp != nil {
		return c.sftp, nil
	}
	if err := c.Connect(); err != nil {
		return nil, err
	}
	s, err := sftp.NewClient(c.conn)
	if err != nil {
		return nil, fmt.Errorf("open sftp subsystem: %w", err)
	}
	c.sftp = s
	return s, nil
}

// Put uploads a single local file to remotePath, preserving its mode.
func (c *Client) Put(localPath, remotePath string) error {
	s, err := c.sftpSession()
	if err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	dst, err := s.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create remote %s: %w", remotePath, err)
	}
	defer dst.Close()

	if err := c.copy(dst, src); err != nil {
		return fmt.Errorf("upload %s: %w", localPath, err)
	}

	// permissions matter for staged executables
	if err := s.Chmod(remotePath, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod remote %s: %w", remotePath, err)
	}
	return nil
}

// Get downloads a remote file into localDir under its remote base name.
func (c *Client) Get(remotePath, localDir string) error {
	s, err := c.sftpSession()
	if err != nil {
		return err
	}

	src, err := s.Open(remotePath)
	if err != nil {
		return fmt.Errorf("open remote %s: %w", remotePath, err)
	}
	defer src.Close()

	// remote paths use forward slashes regardless of the local OS
	local := filepath.Join(localDir, path.Base(remotePath))
	dst, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("create %s: %w", local, err)
	}
	defer dst.Close()

	if err := c.copy(dst, src); err != nil {
		return fmt.Errorf("download %s: %w", remotePath, err)
	}
	return nil
}

// copy streams r into w in 32 KiB chunks, reporting progress if a
// callback is set.
func (c *Client) copy(w io.Writer, r io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, wErr := w.Write(buf[:n]); wErr != nil {
				return wErr
			}
			if c.Progress != nil {
				c.Progress(n)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
