package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
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

// ParseLevel разбирает уровень из конфигурации. Неизвестное значение даёт INFO.
func ParseLevel(s string) LogLevel {
	switch s {
	case "trace", "TRACE":
		return TRACE
	case "debug", "DEBUG":
		return DEBUG
	case "warn", "WARN":
		return WARN
	case "error", "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// LogDir каталог для файловых логов.
var LogDir = "logs"

// Logger пишет в консоль и (опционально) в файл компонента.
type Logger struct {
	component       string
	mu              sync.Mutex
	consoleLogger   *log.Logger
	fileLogger      *log.Logger
	file            *os.File
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = NewConsoleLogger("", os.Stdout)
)

// NewLogger создаёт логгер компонента с файлом logs/<component>_<timestamp>.log.
func NewLogger(component string) (*Logger, error) {
	if err := os.MkdirAll(LogDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(LogDir, fmt.Sprintf("%s_%s.log", component, timestamp))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := NewConsoleLogger(component, os.Stdout)
	l.file = file
	l.fileLogger = log.New(file, "", log.LstdFlags|log.Lmicroseconds)
	return l, nil
}

// NewConsoleLogger создаёт логгер без файла (тесты, fallback).
func NewConsoleLogger(component string, w io.Writer) *Logger {
	return &Logger{
		component:       component,
		consoleLogger:   log.New(w, "", log.LstdFlags),
		minConsoleLevel: INFO,
		minFileLevel:    TRACE,
	}
}

// SetLevels меняет минимальные уровни для консоли и файла.
func (l *Logger) SetLevels(console, file LogLevel) {
	l.mu.Lock()
	l.minConsoleLevel = console
	l.minFileLevel = file
	l.mu.Unlock()
}

// Close закрывает файл логгера
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.fileLogger = nil
	return err
}

func (l *Logger) logf(level LogLevel, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if l.component != "" {
		msg = fmt.Sprintf("[%s] [%s] %s", level.String(), l.component, msg)
	} else {
		msg = fmt.Sprintf("[%s] %s", level.String(), msg)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fileLogger != nil && level >= l.minFileLevel {
		l.fileLogger.Println(msg)
	}
	if level >= l.minConsoleLevel {
		l.consoleLogger.Println(msg)
	}
}

func (l *Logger) Trace(format string, args ...interface{}) { l.logf(TRACE, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.logf(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.logf(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.logf(WARN, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.logf(ERROR, format, args...) }

// InitDefaultLogger заменяет глобальный логгер файловым логгером с указанным именем.
func InitDefaultLogger(name string) error {
	l, err := NewLogger(name)
	if err != nil {
		return err
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	return nil
}

// CloseDefaultLogger закрывает файл глобального логгера
func CloseDefaultLogger() {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	_ = l.Close()
}

// SetDefaultLevels меняет уровни глобального логгера
func SetDefaultLevels(console, file LogLevel) {
	current().SetLevels(console, file)
}

// Default возвращает текущий глобальный логгер.
func Default() *Logger {
	return current()
}

func current() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Trace логирует сообщение уровня TRACE
func Trace(format string, args ...interface{}) { current().logf(TRACE, format, args...) }

// Debug логирует сообщение уровня DEBUG
func Debug(format string, args ...interface{}) { current().logf(DEBUG, format, args...) }

// Info логирует сообщение уровня INFO
func Info(format string, args ...interface{}) { current().logf(INFO, format, args...) }

// Warn логирует сообщение уровня WARN
func Warn(format string, args ...interface{}) { current().logf(WARN, format, args...) }

// Error логирует сообщение уровня ERROR
func Error(format string, args ...interface{}) { current().logf(ERROR, format, args...) }

// LogTileRender логирует завершение рендера тайла
func LogTileRender(regionX, regionZ int, chunks int, took time.Duration) {
	Debug("Tile %d_%d rendered: %d chunks in %s", regionX, regionZ, chunks, took)
}

// LogChunkUnavailable логирует пропуск недоступного чанка
func LogChunkUnavailable(chunkX, chunkZ int, attempt int) {
	Trace("Chunk (%d,%d) unavailable, attempt %d", chunkX, chunkZ, attempt)
}
