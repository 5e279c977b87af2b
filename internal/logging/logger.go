package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из конфигурации ("debug", "INFO" ...).
// Неизвестные значения дают INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

func (l LogLevel) logrus() logrus.Level {
	switch l {
	case TRACE:
		return logrus.TraceLevel
	case DEBUG:
		return logrus.DebugLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Options задаёт параметры создания логгера.
type Options struct {
	Dir          string   // каталог для файлов логов; пусто — только консоль
	ConsoleLevel LogLevel // минимальный уровень для консоли
	FileLevel    LogLevel // минимальный уровень для файла
	JSON         bool     // писать файл в JSON-формате

	// Components переопределяет порог консоли для отдельных компонентов
	// (например, "multiblock": TRACE при отладке сканирования).
	Components map[string]LogLevel
}

// DefaultOptions возвращает настройки по умолчанию: консоль INFO, файл DEBUG в ./logs.
func DefaultOptions() Options {
	return Options{
		Dir:          "logs",
		ConsoleLevel: INFO,
		FileLevel:    DEBUG,
	}
}

// Logger представляет логгер компонента.
// Консольный и файловый вывод разделены, у каждого свой порог.
type Logger struct {
	component       string
	console         *logrus.Logger
	file            *logrus.Logger
	fileHandle      *os.File
	// Пороги меняются на лету через LoggerManager.SetLogLevel.
	minConsoleLevel atomic.Int32
	minFileLevel    atomic.Int32
}

// NewLogger создаёт логгер компонента с настройками по умолчанию.
func NewLogger(component string) (*Logger, error) {
	return NewLoggerWithOptions(component, currentOptions())
}

// NewLoggerWithOptions создаёт логгер компонента.
func NewLoggerWithOptions(component string, opts Options) (*Logger, error) {
	console := logrus.New()
	console.SetOutput(os.Stdout)
	console.SetLevel(logrus.TraceLevel)
	console.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	l := &Logger{component: component, console: console}
	l.SetLevels(opts.ConsoleLevel, opts.FileLevel)
	if lvl, ok := opts.Components[component]; ok {
		l.minConsoleLevel.Store(int32(lvl))
	}

	if opts.Dir == "" {
		return l, nil
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории %s: %w", opts.Dir, err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", component, timestamp))
	fh, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
	}

	file := logrus.New()
	file.SetOutput(fh)
	file.SetLevel(logrus.TraceLevel)
	if opts.JSON {
		file.SetFormatter(&logrus.JSONFormatter{})
	} else {
		file.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}

	l.file = file
	l.fileHandle = fh
	return l, nil
}

// NewDiscardLogger возвращает логгер, который ничего не пишет. Удобен в тестах.
func NewDiscardLogger() *Logger {
	console := logrus.New()
	console.SetOutput(io.Discard)
	l := &Logger{component: "discard", console: console}
	l.SetLevels(ERROR+1, ERROR+1)
	return l
}

// AddHook подключает logrus-хук к обоим выводам (например, отправку в Sentry).
func (l *Logger) AddHook(h logrus.Hook) {
	l.console.AddHook(h)
	if l.file != nil {
		l.file.AddHook(h)
	}
}

// Close закрывает файл логов
func (l *Logger) Close() error {
	if l.fileHandle == nil {
		return nil
	}
	err := l.fileHandle.Close()
	l.fileHandle = nil
	l.file = nil
	return err
}

// Component возвращает имя компонента логгера.
func (l *Logger) Component() string { return l.component }

// SetLevels задаёт пороги консоли и файла.
func (l *Logger) SetLevels(console, file LogLevel) {
	l.minConsoleLevel.Store(int32(console))
	l.minFileLevel.Store(int32(file))
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if l == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if int32(level) >= l.minConsoleLevel.Load() {
		l.console.WithField("component", l.component).Log(level.logrus(), msg)
	}
	if l.file != nil && int32(level) >= l.minFileLevel.Load() {
		l.file.WithField("component", l.component).Log(level.logrus(), msg)
	}
}

func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(WARN, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

// Глобальный логгер по умолчанию
var defaultLogger = mustConsoleLogger()

func mustConsoleLogger() *Logger {
	l, _ := NewLoggerWithOptions("server", Options{ConsoleLevel: INFO, FileLevel: ERROR})
	return l
}

// InitDefaultLogger инициализирует глобальный логгер с файловым выводом.
func InitDefaultLogger(component string) error {
	l, err := NewLogger(component)
	if err != nil {
		return err
	}
	defaultLogger = l
	return nil
}

// SetDefaultLogger подменяет глобальный логгер.
func SetDefaultLogger(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// DefaultLogger возвращает глобальный логгер.
func DefaultLogger() *Logger { return defaultLogger }

// CloseDefaultLogger закрывает глобальный логгер
func CloseDefaultLogger() {
	if defaultLogger != nil {
		_ = defaultLogger.Close()
	}
}

// Trace логирует сообщение уровня TRACE
func Trace(format string, args ...interface{}) { defaultLogger.Trace(format, args...) }

// Debug логирует сообщение уровня DEBUG
func Debug(format string, args ...interface{}) { defaultLogger.Debug(format, args...) }

// Info логирует сообщение уровня INFO
func Info(format string, args ...interface{}) { defaultLogger.Info(format, args...) }

// Warn логирует сообщение уровня WARN
func Warn(format string, args ...interface{}) { defaultLogger.Warn(format, args...) }

// Error логирует сообщение уровня ERROR
func Error(format string, args ...interface{}) { defaultLogger.Error(format, args...) }
