// Package dispatch records wagons handed off to outbound trains.
//
// A dispatch record is an append-only fact: once a loaded wagon leaves a
// siding it is logged here with its display number, optional destination,
// and departure time. Records are only ever removed by the whole-system
// reset.
package dispatch
