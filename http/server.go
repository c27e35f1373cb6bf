package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultReadTimeout  = 5 * time.Second
	DefaultWriteTimeout = 5 * time.Second
)

var ErrServerClosed = errors.New("http: server closed")

type Server struct {
	Name    string
	Handler Handler

	// Workers is the fixed pool size, read once when serving starts.
	Workers      int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DeferAccept  time.Duration
	Limits       ReadLimits
	Logger       *slog.Logger

	mu         sync.Mutex
	pool       *WorkerPool[net.Conn]
	listeners  map[net.Listener]struct{}
	inShutdown atomic.Bool
	done       chan struct{}
	closeOnce  sync.Once

	tracer  trace.Tracer
	metrics *serverMetrics
}

func NewServer(name string, handler Handler) *Server {
	s := &Server{
		Name:         name,
		Handler:      handler,
		Workers:      DefaultWorkerPoolSize,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		Limits:       DefaultReadLimits(),
		Logger:       slog.Default(),

		listeners: make(map[net.Listener]struct{}),
		done:      make(chan struct{}),
		tracer:    otel.Tracer(instrumentationName),
	}
	s.metrics = newServerMetrics(otel.Meter(instrumentationName), s)

	return s
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if s.inShutdown.Load() {
		return ErrServerClosed
	}

	listener, err := Listen(ctx, addr, s.DeferAccept)
	if err != nil {
		return err
	}

	return s.Serve(listener)
}

// Serve accepts connections on listener and queues each one to the worker
// pool. It never reads from or writes to a connection itself. Transient accept
// failures are retried with backoff; Serve returns once the listener is closed
// or the server is shut down.
func (s *Server) Serve(listener net.Listener) error {
	pool, err := s.trackListener(listener)
	if err != nil {
		listener.Close()
		return err
	}
	defer s.untrackListener(listener)

	retry := newAcceptBackoff()
	ctx := context.Background()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.inShutdown.Load() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			s.metrics.acceptErrors.Add(ctx, 1)
			delay := retry.NextBackOff()
			s.logger().Error("accept failed", "error", err, "retry_in", delay)

			select {
			case <-time.After(delay):
			case <-s.done:
				return ErrServerClosed
			}
			continue
		}
		retry.Reset()
		s.metrics.accepted.Add(ctx, 1)

		if err := pool.Enqueue(conn); err != nil {
			s.metrics.dropped.Add(ctx, 1)
			s.logger().Warn("dropping connection", "remote", remoteAddr(conn), "error", err)
			conn.Close()
		}
	}
}

// ServeConn answers a single request on conn and closes it on every path.
func (s *Server) ServeConn(conn net.Conn) {
	defer conn.Close()

	start := time.Now()
	logger := s.logger().With("conn.id", uuid.NewString(), "remote", remoteAddr(conn))

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			logger.Debug("set nodelay failed", "error", err)
		}
	}
	rw := newTimeoutConn(conn, s.ReadTimeout, s.WriteTimeout)

	var req Request
	readErr := req.Read(rw, s.Limits)
	if errors.Is(readErr, ErrNoRequest) {
		logger.Debug("connection closed without a request", "error", readErr)
		return
	}

	ctx := otel.GetTextMapPropagator().Extract(context.Background(), headerCarrier(req.Headers))
	ctx, span := s.tracer.Start(ctx, "http.conn",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", req.RawMethod),
			attribute.String("url.path", req.Path),
			attribute.Int("http.request.body.size", len(req.Body)),
		),
	)
	defer span.End()

	var res Response
	if readErr != nil {
		logger.Warn("bad request", "method", req.RawMethod, "path", req.Path, "error", readErr)
		span.RecordError(readErr)
		res.WithStatus(StatusBadRequest).WithText(StatusText(StatusBadRequest))
	} else {
		s.handler()(&req, &res)
	}
	if res.Status == 0 {
		res.Status = StatusOK
	}
	span.SetAttributes(attribute.Int("http.response.status_code", res.Status))

	if err := res.Write(rw); err != nil {
		logger.Debug("write failed", "status", res.Status, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "response write failed")
	}

	s.metrics.recordRequest(ctx, req.Method, res.Status, time.Since(start))
	logger.Debug("request served",
		"method", req.RawMethod,
		"path", req.Path,
		"status", res.Status,
		"duration", time.Since(start),
	)
}

// Shutdown closes every listener and waits for queued and in-flight
// connections to finish, or for ctx to be done. Work already started is never
// interrupted.
func (s *Server) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)

	s.mu.Lock()
	s.closeOnce.Do(func() { close(s.done) })
	var errs error
	for listener := range s.listeners {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = errors.Join(errs, err)
		}
		delete(s.listeners, listener)
	}
	pool := s.pool
	s.mu.Unlock()

	if pool != nil {
		errs = errors.Join(errs, pool.Shutdown(ctx))
	}

	return errs
}

// trackListener registers listener and starts the pool on first use. Both
// happen under mu so a concurrent Shutdown either sees the pool or makes this
// call fail.
func (s *Server) trackListener(listener net.Listener) (*WorkerPool[net.Conn], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inShutdown.Load() {
		return nil, ErrServerClosed
	}
	s.listeners[listener] = struct{}{}
	if s.pool == nil {
		s.pool = NewWorkerPool(s.Workers, s.logger(), s.ServeConn)
	}
	return s.pool, nil
}

func (s *Server) untrackListener(listener net.Listener) {
	s.mu.Lock()
	delete(s.listeners, listener)
	s.mu.Unlock()
}

func (s *Server) queueLen() int {
	s.mu.Lock()
	pool := s.pool
	s.mu.Unlock()

	if pool == nil {
		return 0
	}
	return pool.Len()
}

func (s *Server) busyWorkers() int {
	s.mu.Lock()
	pool := s.pool
	s.mu.Unlock()

	if pool == nil {
		return 0
	}
	return pool.Busy()
}

func (s *Server) handler() Handler {
	if s.Handler == nil {
		return NotFoundHandler
	}
	return s.Handler
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// newAcceptBackoff retries transient accept errors starting at 5ms and
// capping at 1s, without ever giving up.
func newAcceptBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
