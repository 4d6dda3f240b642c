// Package crawler downloads ktweb meeting documents to a local mirror.
//
// A Downloader owns the single politeness gate: every network request waits
// on it, while requests answered from disk do not. A Planner walks one
// policymaker's listing, its meeting document indices, cover pages and issue
// pages in order, isolating failures to the page that caused them.
package crawler
