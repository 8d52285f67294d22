// Package ingestion moves raw source records into the relational store.
//
// A Pipeline run is strictly sequential: every record is extracted before
// validation starts, validated before cleaning, cleaned before
// normalization and duplicate resolution, and normalized before the load.
// Per-record problems are collected in the returned Result; a run never
// returns an error to its caller.
package ingestion
