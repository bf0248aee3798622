package utils

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	defaultReadTimeout     = 60 * time.Second
	defaultWriteTimeout    = defaultReadTimeout
	defaultShutdownTimeout = 30 * time.Second

	gracefulEnvKey     = "AIBLOG_GRACEFUL"
	gracefulEnvValue   = gracefulEnvKey + "=1"
	gracefulListenerFd = 3
)

// Server wraps http.Server with signal driven shutdown and SIGUSR2 restarts
// that hand the listening socket to a child process.
type Server struct {
	*http.Server

	listener     net.Listener
	isGraceful   bool
	signalChan   chan os.Signal
	shutdownOnce sync.Once
	shutdownChan chan struct{}

	hooksMu sync.Mutex
	hooks   []func(context.Context) error
}

// NewServer creates a Server with timeouts and handler.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *Server {
	return &Server{
		Server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		isGraceful:   os.Getenv(gracefulEnvKey) != "",
		signalChan:   make(chan os.Signal, 1),
		shutdownChan: make(chan struct{}),
	}
}

// OnShutdown registers fn to run after the HTTP server drained. Hooks run in
// registration order; errors are logged.
func (srv *Server) OnShutdown(fn func(context.Context) error) {
	srv.hooksMu.Lock()
	srv.hooks = append(srv.hooks, fn)
	srv.hooksMu.Unlock()
}

// ListenAndServe starts serving on tcp and blocks until shutdown finished.
func (srv *Server) ListenAndServe() error {
	addr := srv.Addr
	if addr == "" {
		addr = ":http"
	}
	ln, err := srv.getNetListener(addr)
	if err != nil {
		return err
	}
	return srv.Serve(ln)
}

// Serve accepts connections on ln until a shutdown signal arrives.
func (srv *Server) Serve(ln net.Listener) error {
	srv.listener = ln
	go srv.handleSignals()
	err := srv.Server.Serve(srv.listener)
	if err == http.ErrServerClosed {
		<-srv.shutdownChan
		return nil
	}
	return err
}

func (srv *Server) getNetListener(addr string) (net.Listener, error) {
	if srv.isGraceful {
		file := os.NewFile(gracefulListenerFd, "")
		ln, err := net.FileListener(file)
		if err != nil {
			return nil, fmt.Errorf("net.FileListener error: %w", err)
		}
		return ln, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("net.Listen error: %w", err)
	}
	return ln, nil
}

func (srv *Server) handleSignals() {
	signal.Notify(srv.signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR2)
	defer signal.Stop(srv.signalChan)

	for {
		var sig os.Signal
		select {
		case sig = <-srv.signalChan:
		case <-srv.shutdownChan:
			return
		}
		switch sig {
		case syscall.SIGINT, syscall.SIGTERM:
			Logger.Info("graceful shutdown", zap.String("signal", sig.String()))
			srv.Shutdown()
			return
		case syscall.SIGUSR2:
			Logger.Info("received SIGUSR2, restarting HTTP server")
			pid, err := srv.startNewProcess()
			if err != nil {
				Logger.Error("start new process failed, continue serving", zap.Error(err))
				continue
			}
			Logger.Info("new process started, closing old server", zap.Uintptr("pid", pid))
			srv.Shutdown()
			return
		}
	}
}

// Shutdown drains in-flight requests, then runs the shutdown hooks. It is
// safe to call more than once.
func (srv *Server) Shutdown() {
	srv.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := srv.Server.Shutdown(ctx); err != nil {
			Logger.Error("HTTP server shutdown error", zap.Error(err))
		} else {
			Logger.Info("HTTP server shutdown success")
		}

		srv.hooksMu.Lock()
		hooks := srv.hooks
		srv.hooksMu.Unlock()
		for _, fn := range hooks {
			if err := fn(ctx); err != nil {
				Logger.Warn("shutdown hook failed", zap.Error(err))
			}
		}
		close(srv.shutdownChan)
	})
}

// startNewProcess forks the current binary and passes it the listener fd.
func (srv *Server) startNewProcess() (uintptr, error) {
	tcpLn, ok := srv.listener.(*net.TCPListener)
	if !ok {
		return 0, fmt.Errorf("listener is not *net.TCPListener")
	}
	file, err := tcpLn.File()
	if err != nil {
		return 0, fmt.Errorf("get listener file: %w", err)
	}

	envs := []string{}
	for _, e := range os.Environ() {
		if e != gracefulEnvValue {
			envs = append(envs, e)
		}
	}
	envs = append(envs, gracefulEnvValue)

	attr := &syscall.ProcAttr{
		Env:   envs,
		Files: []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd(), file.Fd()},
	}
	pid, err := syscall.ForkExec(os.Args[0], os.Args, attr)
	if err != nil {
		return 0, fmt.Errorf("forkexec: %w", err)
	}
	return uintptr(pid), nil
}

// NewGraceServer returns a Server with the default timeouts.
func NewGraceServer(addr string, handler http.Handler) *Server {
	return NewServer(addr, handler, defaultReadTimeout, defaultWriteTimeout)
}
