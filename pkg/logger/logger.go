// Package logger is a small structured logging layer over zerolog.
package logger

// Logger logs a message from a component, with some key/value fields
type Logger interface {
	Info(component, message string, fields map[string]interface{})
	Error(component string, err error, fields map[string]interface{})
	Warning(component, message string, fields map[string]interface{})
	Debug(component, message string, fields map[string]interface{})
}
