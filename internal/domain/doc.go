// Package domain models the weather document store: stations, their owners,
// daily weather reports, balloon soundings, and the maintenance records that
// reference them.
//
// # Storage and embedded projections
//
// Every entity that is referenced from another collection exposes two kinds
// of document:
//
//	storage projection   the full document persisted in the entity's own collection
//	embedded subset      identity and display fields copied into a referencing document
//
// Embedded subsets never carry credentials, binary payloads, or reading arrays.
// They are copies, not references: renaming an owner must be propagated to
// every collection holding a copy (see package report).
//
//	users                  Institution | WeatherWatcher | Administrator
//	weather_stations       owner -> station subset, latest_maintenance -> log subset
//	weather_reports        station -> {station_id, name}, owner -> report subset
//	weather_balloon_reports station -> {station_id, name, owner -> station subset}
//
// # Owner subsets
//
//	Institution station subset: {owner_type, user_id, name, contact, email, telephone}
//	Institution report subset:  {owner_type, user_id, name}
//	WeatherWatcher (both):      {owner_type: "Private", user_id, name: display_name}
//
// Institution contact details are public and stored in clear. Watcher and
// administrator names and email addresses are stored through a reversible
// [FieldCipher]; passwords only ever as a one-way hash.
//
// # Geometry
//
// Locations are GeoJSON points with (longitude, latitude[, altitude]) ordering.
// [Point] encodes itself as GeoJSON in both BSON and JSON.
//
// # Timestamps
//
// Tabular station sources are UTC. Radiosonde sources carry epoch seconds that
// are stored as naive local wall-clock time, see [NaiveLocal]. The two are not
// unified.
//
// # Versioning
//
// Weather reports and balloon reports start at version 1. Every mutation of a
// report's readings, observations, derived summary, or embedded owner bumps the
// version by exactly one and refreshes last_modified in the same update.
package domain
