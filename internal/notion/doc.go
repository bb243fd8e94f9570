// Package notion implements store.RecordStore against the Notion REST API.
//
// Collections are Notion databases and records are pages. Writes send the
// same tagged property JSON the API returns, so rich text spans and file
// references round-trip without loss.
//
// The client does no retries and no rate limiting. A failed call surfaces as
// an error; the sync engine treats it per record and the next pass retries.
package notion
