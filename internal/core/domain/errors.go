package domain

import "errors"

// ErrInvalidInput couvre les lectures pures : les mutations signalent leurs
// rejets via l'enveloppe typée, pas par erreur Go.
var ErrInvalidInput = errors.New("ids cannot be empty")
