// Package s3 provides a blobstore.BlobStore backed by Amazon S3, plus an
// optional DynamoDB-based commit layer that gives snapshot publishes a
// compare-and-swap "current" pointer.
package s3
