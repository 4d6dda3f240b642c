// Package store declares the persistence contract for ingested meeting
// documents and the read models served by the API.
package store
