package logger

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

func Init(basePath string, level logrus.Level) {
	logrus.SetLevel(level)
	if basePath == "" {
		basePath = "log"
	}

	writer, err := rotatelogs.New(
		filepath.Join(basePath, "%Y-%m-%d.log"),
		// keep a week of files, one per day
		rotatelogs.WithMaxAge(7*24*time.Hour),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		logrus.Fatal(err)
	}

	logrus.SetOutput(io.MultiWriter(writer, os.Stdout))
	logrus.SetFormatter(&nested.Formatter{
		HideKeys:              true,
		TimestampFormat:       "2006-01-02 15:04:05",
		CallerFirst:           true,
		NoColors:              true,
		CustomCallerFormatter: callerFormatter,
	})
	logrus.SetReportCaller(true)
}

// callerFormatter trims the frame down to pkg/file.go:line.
func callerFormatter(frame *runtime.Frame) string {
	return " <" + trimFile(frame.File) + ":" + strconv.Itoa(frame.Line) + "> |"
}

func trimFile(file string) string {
	slice := strings.Split(file, "/")
	if len(slice) > 2 {
		return strings.Join(slice[len(slice)-2:], "/")
	}
	return file
}

func Debug(args ...interface{}) {
	logrus.Debug(args...)
}

func Debugf(format string, args ...interface{}) {
	logrus.Debugf(format, args...)
}

func Info(args ...interface{}) {
	logrus.Info(args...)
}

func Infof(format string, args ...interface{}) {
	logrus.Infof(format, args...)
}

func Warn(args ...interface{}) {
	logrus.Warn(args...)
}

func Warnf(format string, args ...interface{}) {
	logrus.Warnf(format, args...)
}

func Error(args ...interface{}) {
	logrus.Error(args...)
}

func Errorf(format string, args ...interface{}) {
	logrus.Errorf(format, args...)
}

func Fatal(args ...interface{}) {
	logrus.Fatal(args...)
}

func Fatalf(format string, args ...interface{}) {
	logrus.Fatalf(format, args...)
}
