// Package snapshot exports the catalog to a Parquet file and reads it back.
//
// A snapshot is a single self-describing file holding every record, for
// consumers that should not talk to the database. Export replaces the file
// atomically. Stream turns a snapshot into JSON lines for tools that cannot
// read Parquet. Upload optionally pushes the file to S3 or MinIO.
package snapshot
