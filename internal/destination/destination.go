package destination

import "github.com/psanford/emissary/config"

type Loader interface {
	Type() string
	Load(c *config.Channel) (Destination, error)
}

// Destination delivers one JSON body. body must be json.Marshal-able.
type Destination interface {
	Send(body interface{}) error
	ID() string
	Type() string
}
