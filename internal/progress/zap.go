package progress

import "go.uber.org/zap"

// ZapSink writes events as structured log entries. Warnings and failures log at warn level.
type ZapSink struct {
	log *zap.Logger
}

func NewZapSink(log *zap.Logger) *ZapSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapSink{log: log}
}

func (s *ZapSink) Emit(e Event) {
	if s == nil {
		return
	}
	fields := []zap.Field{zap.String("event", string(e.Type))}
	if e.RunID != "" {
		fields = append(fields, zap.String("run_id", e.RunID))
	}
	if e.URL != "" {
		fields = append(fields, zap.String("url", e.URL), zap.String("device", e.Device))
	}
	if e.Runs > 0 {
		fields = append(fields, zap.Int("run", e.Run), zap.Int("runs", e.Runs))
	}
	if e.Pairs > 0 {
		fields = append(fields, zap.Int("pairs", e.Pairs))
	}
	if e.Status != "" {
		fields = append(fields, zap.String("status", e.Status))
	}
	if e.DurationMS > 0 {
		fields = append(fields, zap.Int64("duration_ms", e.DurationMS))
	}
	if e.Error != "" {
		fields = append(fields, zap.String("error", e.Error))
	}

	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}
	if e.Type == EventRunWarning || e.Error != "" {
		s.log.Warn(msg, fields...)
		return
	}
	s.log.Debug(msg, fields...)
}
