package sftp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/edvin/filevault/internal/model"
	"github.com/edvin/filevault/internal/storage"
)

const dialTimeout = 30 * time.Second

// Backend stores backups on a remote file server over SFTP, under
// <base_path>/<scope>/<name>. One connection per instance; open per
// operation, never shared.
type Backend struct {
	sshClient  *ssh.Client
	sftpClient *sftp.Client
	root       string
}

func init() {
	storage.Register(model.KindSFTP, func(ctx context.Context, cfg storage.Config) (storage.Backend, error) {
		return New(ctx, cfg)
	})
}

// New dials the file server and creates a backend bound to one tenant scope.
func New(ctx context.Context, cfg storage.Config) (*Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	srv := cfg.Server
	if srv == nil || srv.Host == "" || srv.Username == "" {
		return nil, storage.WrapError(model.KindSFTP, "open", storage.ErrInvalidConfig)
	}

	port := srv.Port
	if port == 0 {
		port = 22
	}

	clientConfig := &ssh.ClientConfig{
		User:            srv.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(srv.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}

	addr := fmt.Sprintf("%s:%d", srv.Host, port)
	sshClient, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return nil, storage.WrapError(model.KindSFTP, "connect", fmt.Errorf("%w: %v", storage.ErrConnFailed, err))
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, storage.WrapError(model.KindSFTP, "sftp init", err)
	}

	return &Backend{
		sshClient:  sshClient,
		sftpClient: sftpClient,
		root:       path.Join(srv.BasePath, cfg.Scope),
	}, nil
}

func (b *Backend) Kind() string { return model.KindSFTP }

func (b *Backend) remotePath(name string) string {
	return path.Join(b.root, name)
}

func (b *Backend) Put(ctx context.Context, name string, content []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	remotePath := b.remotePath(name)

	if err := b.sftpClient.MkdirAll(path.Dir(remotePath)); err != nil {
		return storage.WrapError(model.KindSFTP, "mkdir", err)
	}

	remoteFile, err := b.sftpClient.Create(remotePath)
	if err != nil {
		return storage.WrapError(model.KindSFTP, "create", err)
	}
	defer remoteFile.Close()

	if _, err := remoteFile.Write(content); err != nil {
		return storage.WrapError(model.KindSFTP, "write", err)
	}
	return nil
}

func (b *Backend) GetBytes(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	remoteFile, err := b.sftpClient.Open(b.remotePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, storage.WrapError(model.KindSFTP, "open", err)
	}
	defer remoteFile.Close()

	content, err := io.ReadAll(remoteFile)
	if err != nil {
		return nil, storage.WrapError(model.KindSFTP, "read", err)
	}
	return content, nil
}

func (b *Backend) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.sftpClient.Remove(b.remotePath(name)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return storage.WrapError(model.KindSFTP, "delete", err)
	}
	return nil
}

func (b *Backend) DirectLink(ctx context.Context, name string) (string, error) {
	return "", storage.ErrUnsupported
}

func (b *Backend) SupportsDirectLink() bool { return false }

func (b *Backend) Close() error {
	if b.sftpClient != nil {
		b.sftpClient.Close()
	}
	if b.sshClient != nil {
		b.sshClient.Close()
	}
	return nil
}
