// Package logging provides structured logging for milestoned.
//
// # Overview
//
// The package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Context field injection (run.id, trace_id)
//   - Secret redaction at the encoder
//
// Logs go to stderr so command output on stdout stays clean.
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRunID(ctx, runID)
//	logger.Info(ctx, "milestone selected", zap.String("milestone", m))
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "artifact saved", zap.String("filename", "index.html"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "artifact saved")
//	tl.AssertField(t, "artifact saved", "filename", "index.html")
package logging
