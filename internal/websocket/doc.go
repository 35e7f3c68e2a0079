// Package websocket pushes analysis session events to browser dashboards.
//
// A Hub owns the connected clients. Each client may follow a single session,
// in which case it only receives events published for that session plus
// global ones. Slow clients whose buffer fills are disconnected rather than
// blocking delivery to the others.
package websocket
