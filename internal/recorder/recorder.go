package recorder

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Recorder wires the poller, tracker, queue, persistence worker and the read
// side together. The poll loop exclusively owns the tracker state; the worker
// runs on its own goroutine behind the queue.
type Recorder struct {
	config Config
	logger Logger

	source  TelemetrySource
	tracker *SessionTracker
	queue   *EventQueue
	worker  *PersistenceWorker
	hub     *LiveHub
	http    *HTTP

	ctx context.Context
	cfn context.CancelFunc

	group   *errgroup.Group
	stopped chan error
}

func NewRecorder(ctx context.Context, config Config, store SessionStore, logger Logger) (*Recorder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	ctx, cfn := context.WithCancel(ctx)

	tracker := NewSessionTracker(logger)
	queue := NewEventQueue(config.QueueSize, logger)
	queue.droppedFn = metricEventsDropped.Inc

	hub := NewLiveHub(logger)

	worker := NewPersistenceWorker(
		queue,
		store,
		logger,
		config.PersistenceMaxAttempts,
		time.Duration(config.BackoffMinMs)*time.Millisecond,
		time.Duration(config.BackoffMaxMs)*time.Millisecond,
		config.PersistLiveUpdates,
	)

	r := &Recorder{
		config:  config,
		logger:  logger,
		source:  NewFileSource(config.SourcePath),
		tracker: tracker,
		queue:   queue,
		worker:  worker,
		hub:     hub,
		ctx:     ctx,
		cfn:     cfn,
		stopped: make(chan error, 1),
	}

	r.http = NewHTTP(config.HTTPPort, store, hub, logger)

	return r, nil
}

// SetSource replaces the telemetry source. Must be called before Start; used
// to substitute a scripted source for the real shared memory page.
func (r *Recorder) SetSource(source TelemetrySource) {
	r.source = source
}

func (r *Recorder) Start() error {
	r.logger.Infof("Starting telemetry session recorder")

	poller := NewPoller(
		r.source,
		r.tracker,
		r.queue,
		r.logger,
		time.Duration(r.config.PollIntervalMs)*time.Millisecond,
		time.Duration(r.config.ReadTimeoutMs)*time.Millisecond,
		time.Duration(r.config.BackoffMinMs)*time.Millisecond,
		time.Duration(r.config.BackoffMaxMs)*time.Millisecond,
		r.hub,
	)

	if err := r.http.Listen(); err != nil {
		return err
	}

	r.group, _ = errgroup.WithContext(context.Background())

	// the worker must outlive the poll loop: the poller pushes the closing
	// events of the in-flight session as it exits, and the worker drains
	// them once its own context is cancelled.
	workerCtx, workerCancel := context.WithCancel(context.Background())

	r.group.Go(func() error {
		defer workerCancel()

		return poller.Run(r.ctx)
	})

	r.group.Go(func() error {
		return r.worker.Run(workerCtx)
	})

	r.group.Go(func() error {
		r.reportPersistenceFailures()

		return nil
	})

	return nil
}

// Stop cancels the poll loop, which finalises the in-flight session, then
// waits for the worker to drain the queue before shutting down the read side.
func (r *Recorder) Stop() (err error) {
	defer func() {
		r.stopped <- err
	}()

	r.logger.Infof("Shutting down recorder")

	r.cfn()

	if r.group != nil {
		err = r.group.Wait()
	}

	r.hub.Close()

	if httpErr := r.http.Close(); httpErr != nil && err == nil {
		err = httpErr
	}

	return err
}

func (r *Recorder) Run() error {
	if err := r.Start(); err != nil {
		return err
	}

	return <-r.stopped
}

func (r *Recorder) reportPersistenceFailures() {
	for {
		select {
		case <-r.ctx.Done():
			return
		case event := <-r.worker.Failures():
			r.logger.Errorf("Session %s could not be persisted durably (event: %s)", event.SessionID, event.Kind)
		}
	}
}
