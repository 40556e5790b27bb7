package server

import "fmt"

// Terminal colours for DEV request logs
const (
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Gray   = "\033[90m" // Bright black, often appears as gray

	ResetColor = "\033[0m"
)

var methodColors = map[string]string{
	"GET":  Green,
	"POST": Blue,
}

func colouredStatus(status int) string {
	color := Green
	switch {
	case status >= 500:
		color = Red
	case status >= 400:
		color = Yellow
	case status >= 300:
		color = Gray
	}
	return fmt.Sprintf("%s%d%s", color, status, ResetColor)
}
