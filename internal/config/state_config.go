package config

import "strings"

// StateMode selects where the relay keeps its state between invocations.
type StateMode string

const (
	StateModeMemory StateMode = "MEMORY"
	StateModeFile   StateMode = "FILE"
	StateModeSQL    StateMode = "SQL"
)

const (
	StateModeVar       = "STATE_MODE"
	StateFileVar       = "STATE_FILE"
	StatePassphraseVar = "STATE_PASSPHRASE"
	StateDSNVar        = "STATE_DSN"
)

type StateConfig interface {
	GetStateMode() StateMode
	GetStateFile() string
	// GetStatePassphrase returns "" when the state file is stored in clear.
	GetStatePassphrase() string
	GetStateDSN() string
}

type State struct{}

var _ StateConfig = State{}

func (State) GetStateMode() StateMode {
	return StateMode(strings.ToUpper(GetEnv(StateModeVar, string(StateModeMemory))))
}

func (State) GetStateFile() string {
	return GetEnv(StateFileVar, "./state.json")
}

func (State) GetStatePassphrase() string {
	return GetEnv(StatePassphraseVar, "")
}

func (State) GetStateDSN() string {
	return GetEnv(StateDSNVar, "file:relay.db")
}
