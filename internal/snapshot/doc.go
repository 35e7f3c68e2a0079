// Package snapshot stores exported registry documents so classification work
// survives across sessions and machines. Two backends exist: a local
// directory and an S3 bucket (or any S3 compatible server such as MinIO).
package snapshot
