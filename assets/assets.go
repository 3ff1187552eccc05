// Package assets embeds the bundled ticket fixtures.
package assets

import _ "embed"

// Tickets is the default ticket dataset.
//
//go:embed data/tickets.json
var Tickets []byte

// DemoTicket is the single ticket shown on the home card.
//
//go:embed data/ticket_demo.json
var DemoTicket []byte
