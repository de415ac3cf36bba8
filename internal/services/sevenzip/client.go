package sevenzip

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Executor abstracts command execution for testability. Run returns an error
// implementing ExitCoder when the process ran but exited non-zero.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error
}

// ExitCoder is implemented by errors that carry a process exit status.
type ExitCoder interface {
	ExitCode() int
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithEncoding decodes tool output from the named character set (any WHATWG
// label such as "gbk" or "windows-1252"). Empty or "utf-8" leaves output as is.
func WithEncoding(name string) Option {
	return func(c *Client) {
		c.encodingName = strings.TrimSpace(name)
	}
}

// WithExtraArgs appends switches to every invocation.
func WithExtraArgs(args ...string) Option {
	return func(c *Client) {
		c.extraArgs = append(c.extraArgs, args...)
	}
}

// Client wraps 7-Zip CLI interactions.
type Client struct {
	binary       string
	exec         Executor
	extraArgs    []string
	encodingName string
	decoder      *encoding.Decoder
}

// New constructs a 7-Zip client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("7-zip binary required")
	}
	client := &Client{
		binary: binary,
		exec:   commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	if name := strings.ToLower(client.encodingName); name != "" && name != "utf-8" && name != "utf8" {
		enc, err := htmlindex.Get(name)
		if err != nil {
			return nil, fmt.Errorf("output encoding %q: %w", client.encodingName, err)
		}
		if enc != unicode.UTF8 {
			client.decoder = enc.NewDecoder()
		}
	}
	return client, nil
}

// List identifies the archive at path.
func (c *Client) List(ctx context.Context, path, password string) (*Result, error) {
	return c.run(ctx, OpList, path, password, nil)
}

// Test verifies the integrity of the archive at path.
func (c *Client) Test(ctx context.Context, path, password string) (*Result, error) {
	return c.run(ctx, OpTest, path, password, nil)
}

// Extract unpacks the archive at path into outDir. With keepDir the stored
// directory structure is kept; otherwise every file lands in outDir itself.
// Name clashes inside one extraction are auto-renamed.
func (c *Client) Extract(ctx context.Context, path, password, outDir string, keepDir bool) (*Result, error) {
	if strings.TrimSpace(outDir) == "" {
		return nil, errors.New("output directory required")
	}
	op := OpExtract
	if !keepDir {
		op = OpExtractFlat
	}
	return c.run(ctx, op, path, password, []string{"-aou", "-o" + outDir})
}

// Args returns the argument vector for one invocation.
func (c *Client) Args(op Op, path, password string, switches ...string) []string {
	args := []string{string(op), path, "-p" + password, "-y"}
	args = append(args, switches...)
	return append(args, c.extraArgs...)
}

func (c *Client) run(ctx context.Context, op Op, path, password string, switches []string) (*Result, error) {
	var stdout, stderr []string
	err := c.exec.Run(ctx, c.binary, c.Args(op, path, password, switches...),
		func(line string) { stdout = append(stdout, c.decode(line)) },
		func(line string) { stderr = append(stderr, c.decode(line)) },
	)

	exitCode := 0
	if err != nil {
		var coder ExitCoder
		if !errors.As(err, &coder) {
			return nil, fmt.Errorf("7-zip %s %s: %w", op.Name(), path, err)
		}
		exitCode = coder.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return newResult(op, path, password, exitCode, stdout, stderr), nil
}

func (c *Client) decode(line string) string {
	if c.decoder == nil {
		return line
	}
	decoded, err := c.decoder.String(line)
	if err != nil {
		return line
	}
	return decoded
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			if forward != nil {
				forward(strings.TrimRight(scanner.Text(), "\r"))
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout, onStdout)
	go scan(stderr, onStderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
