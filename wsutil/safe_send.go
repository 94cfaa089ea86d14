package wsutil

import "go.uber.org/zap"

// SafeSend sends data to a channel without blocking and without panicking if
// the channel is closed. It reports whether the data was queued; a full or
// closed channel returns false.
func SafeSend(ch chan<- []byte, data []byte, logger *zap.Logger) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("send on closed channel", zap.Any("panic", r))
			ok = false
		}
	}()
	select {
	case ch <- data:
		return true
	default:
		return false
	}
}
