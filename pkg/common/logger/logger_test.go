package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestInitWith(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel logrus.Level
		wantText  bool
	}{
		{name: "defaults", wantLevel: logrus.InfoLevel},
		{name: "plain debug", level: "debug", format: "plain", wantLevel: logrus.DebugLevel, wantText: true},
		{name: "text alias", level: "warn", format: "TEXT", wantLevel: logrus.WarnLevel, wantText: true},
		{name: "bad level", level: "loud", format: "json", wantLevel: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitWith(tt.level, tt.format)
			assert.Equal(t, tt.wantLevel, Log.GetLevel())
			_, isText := Log.Formatter.(*logrus.TextFormatter)
			assert.Equal(t, tt.wantText, isText)
		})
	}
}
