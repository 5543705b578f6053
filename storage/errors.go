package storage

import "github.com/rotisserie/eris"

var (
	ErrEntityDoesNotExist       = eris.New("entity does not exist")
	ErrComponentAlreadyOnEntity = eris.New("component already on entity")
	ErrComponentNotOnEntity     = eris.New("component not on entity")
)
