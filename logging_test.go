package hwcodec

import (
	"bytes"
	"testing"

	"github.com/pion/logging"
	"github.com/stretchr/testify/assert"
)

func TestSetLoggerFactory(t *testing.T) {
	var buf bytes.Buffer
	f := logging.NewDefaultLoggerFactory()
	f.Writer = &buf
	f.DefaultLogLevel = logging.LogLevelDebug

	SetLoggerFactory(f)
	t.Cleanup(func() { SetLoggerFactory(nil) })

	proberLog.Debugf("trial %d", 42)
	assert.Contains(t, buf.String(), "hwcodec-prober")
	assert.Contains(t, buf.String(), "trial 42")

	buf.Reset()
	f.DefaultLogLevel = logging.LogLevelError
	SetLoggerFactory(f)
	decoderLog.Info("quiet")
	assert.Empty(t, buf.String())
}
