// internal/application/cartsync/notifier.go
package cartsync

import "go.uber.org/zap"

// Notifier receives user-facing messages. Calls must not block.
type Notifier interface {
	Success(msg string)
	Info(msg string)
	Warn(msg string)
}

// LogNotifier writes notifications to zap.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.L()
	}
	return &LogNotifier{log: log.With(zap.String("namespace", "notify"))}
}

func (n *LogNotifier) Success(msg string) { n.log.Info(msg, zap.String("level", "success")) }
func (n *LogNotifier) Info(msg string)    { n.log.Info(msg) }
func (n *LogNotifier) Warn(msg string)    { n.log.Warn(msg) }

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Info(string)    {}
func (nopNotifier) Warn(string)    {}
