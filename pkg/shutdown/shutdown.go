// Package shutdown runs registered callbacks when a shutdown manager fires.
package shutdown

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Callback is called when shutdown is requested.
type Callback interface {
	OnShutdown(string) error
}

// Func adapts a function to Callback.
type Func func(string) error

func (f Func) OnShutdown(manager string) error {
	return f(manager)
}

// Manager listens for a shutdown trigger, e.g. posix signals.
type Manager interface {
	GetName() string
	Start(gs *GracefulShutdown) error
	ShutdownStart() error
	ShutdownFinish() error
}

// ErrorHandler receives callback and manager errors.
type ErrorHandler func(err error)

type GracefulShutdown struct {
	callbacks    []Callback
	managers     []Manager
	errorHandler ErrorHandler
	once         sync.Once
}

func New() *GracefulShutdown {
	return &GracefulShutdown{}
}

func (gs *GracefulShutdown) Start() error {
	for _, m := range gs.managers {
		if err := m.Start(gs); err != nil {
			return err
		}
	}
	return nil
}

func (gs *GracefulShutdown) AddShutdownManager(m Manager) {
	gs.managers = append(gs.managers, m)
}

func (gs *GracefulShutdown) AddShutdownCallback(cb Callback) {
	gs.callbacks = append(gs.callbacks, cb)
}

func (gs *GracefulShutdown) SetErrorHandler(h ErrorHandler) {
	gs.errorHandler = h
}

// StartShutdown runs all callbacks once, concurrently, and waits for them.
func (gs *GracefulShutdown) StartShutdown(m Manager) {
	gs.once.Do(func() {
		gs.report(m.ShutdownStart())

		var wg sync.WaitGroup
		for _, cb := range gs.callbacks {
			wg.Add(1)
			go func(cb Callback) {
				defer wg.Done()
				gs.report(cb.OnShutdown(m.GetName()))
			}(cb)
		}
		wg.Wait()

		gs.report(m.ShutdownFinish())
	})
}

func (gs *GracefulShutdown) report(err error) {
	if err != nil && gs.errorHandler != nil {
		gs.errorHandler(err)
	}
}

// PosixSignalManager triggers shutdown on SIGINT/SIGTERM and exits afterwards.
type PosixSignalManager struct {
	signals []os.Signal
}

func NewPosixSignalManager(sig ...os.Signal) *PosixSignalManager {
	if len(sig) == 0 {
		sig = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	return &PosixSignalManager{signals: sig}
}

func (m *PosixSignalManager) GetName() string { return "PosixSignalManager" }

func (m *PosixSignalManager) Start(gs *GracefulShutdown) error {
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, m.signals...)
		<-c
		gs.StartShutdown(m)
	}()
	return nil
}

func (m *PosixSignalManager) ShutdownStart() error { return nil }

func (m *PosixSignalManager) ShutdownFinish() error {
	os.Exit(0)
	return nil
}
