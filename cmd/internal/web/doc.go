// Package web holds the HTTP handlers: login and logoff, the ticket resource,
// the hello demo routes, and the single place where errors become responses.
package web
