package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level logrus.Level

const (
	PanicLevel = Level(logrus.PanicLevel)
	FatalLevel = Level(logrus.FatalLevel)
	ErrorLevel = Level(logrus.ErrorLevel)
	WarnLevel  = Level(logrus.WarnLevel)
	InfoLevel  = Level(logrus.InfoLevel)
	DebugLevel = Level(logrus.DebugLevel)
	TraceLevel = Level(logrus.TraceLevel)
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
	Logger.Formatter = &logrus.TextFormatter{
		DisableLevelTruncation: true,
		PadLevelText:           true,
		TimestampFormat:        "2006/01/02 15:04:05",
		FullTimestamp:          true,
	}
}

func SetLevel(level Level) {
	Logger.SetLevel(logrus.Level(level))
}

func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// ToFile sends the log both to stderr and to a size-rotated file.
// The returned closer releases the file.
func ToFile(path string) io.Closer {
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	Logger.SetOutput(io.MultiWriter(os.Stderr, file))
	return file
}

func Logf(level Level, fmt string, args ...any) {
	Logger.Logf(logrus.Level(level), fmt, args...)
}
func Log(level Level, args ...any) {
	Logger.Logln(logrus.Level(level), args...)
}

// LogFieldsf logs at level with structured fields attached.
func LogFieldsf(level Level, fields map[string]any, fmt string, args ...any) {
	Logger.WithFields(logrus.Fields(fields)).Logf(logrus.Level(level), fmt, args...)
}

func Tracef(fmt string, args ...any) {
	Logger.Tracef(fmt, args...)
}
func Trace(args ...any) {
	Logger.Traceln(args...)
}

func Debugf(fmt string, args ...any) {
	Logger.Debugf(fmt, args...)
}
func Debug(args ...any) {
	Logger.Debugln(args...)
}

func Infof(fmt string, args ...any) {
	Logger.Infof(fmt, args...)
}
func Info(args ...any) {
	Logger.Infoln(args...)
}

func Printf(fmt string, args ...any) {
	Logger.Printf(fmt, args...)
}
func Print(args ...any) {
	Logger.Println(args...)
}

func Warnf(fmt string, args ...any) {
	Logger.Warnf(fmt, args...)
}
func Warn(args ...any) {
	Logger.Warnln(args...)
}

func Warningf(fmt string, args ...any) {
	Logger.Warningf(fmt, args...)
}
func Warning(args ...any) {
	Logger.Warningln(args...)
}

func Errorf(fmt string, args ...any) {
	Logger.Errorf(fmt, args...)
}
func Error(args ...any) {
	Logger.Errorln(args...)
}

func Fatalf(fmt string, args ...any) {
	Logger.Fatalf(fmt, args...)
}
func Fatal(args ...any) {
	Logger.Fatalln(args...)
}

func Panicf(fmt string, args ...any) {
	Logger.Panicf(fmt, args...)
}
func Panic(args ...any) {
	Logger.Panicln(args...)
}
