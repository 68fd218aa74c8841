// Package pkg provides the core libraries for Packhouse catalog management.
//
// # Overview
//
// Packhouse turns a wiki pack catalog into an installable dependency graph
// and tracks per-user selection sessions against it. The pkg directory is
// organized into three main areas:
//
//  1. Domain logic - [manifest], [catalog], [session], [command]
//  2. Infrastructure - [cache], [installed], [executor], [httputil], [observability]
//  3. Presentation - [render]
//
// # Architecture
//
// The typical data flow through Packhouse:
//
//	Catalog Document (JSON/YAML)
//	         ↓
//	    [manifest] package (validate + normalize)
//	         ↓
//	    [catalog] package (graph, hierarchy, resolution)
//	         ↓
//	    [session] + [command] packages (selection state machine)
//	         ↓
//	    [executor] package (action list → installer)
package pkg
