// Package crawler implements the incremental harvesting engine: the retrying
// fetch layer, the watermark freshness test, and the controller that walks
// listing pages until it reaches already-stored pastes.
package crawler
