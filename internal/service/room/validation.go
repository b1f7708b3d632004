package room

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var DisplayNameRule = []validation.Rule{
	validation.Required,
	validation.RuneLength(1, 32),
}

var RoomCodeRule = []validation.Rule{
	validation.Required,
	validation.Match(regexp.MustCompile("^[A-HJ-NP-Z2-9]{6}$")),
}

var MediaRefRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 64),
}

var TrackIDRule = []validation.Rule{
	validation.Required,
	is.UUID,
}

var PositionRule = []validation.Rule{
	validation.Min(0.0),
}

var IndexRule = []validation.Rule{
	validation.Min(0),
}
