// Package pagehandler serves static content for multiple domains from one
// shared storage backend. An incoming request's hostname and path resolve
// through a static route table to a storage key; per-method access control
// decides whether the operation may touch the object behind that key.
//
// # Key Components
//
//   - RouteTable: static hostname → path → storage key mapping
//   - AllowList: exact-match set of paths open to unauthenticated reads
//   - Service: combines a metadata repository and a file storage backend
//   - MetaDataRepo: interface for object metadata persistence (PostgreSQL, SQLite)
//   - FileStorage: interface for object content (filesystem, extensible to S3/GCS)
//
// # Request Decision Sequence
//
// The http package applies the decision logic in a fixed order: route
// resolution first (an unmapped host or path is a 404 before anything else),
// then a single method guard, then authorization (shared-secret header for
// PUT and DELETE, allow-list membership for GET), and only then a storage
// operation on the resolved key.
//
// # Example Usage
//
//	routes := pagehandler.RouteTable{
//	    "example2.com": {"/security.txt": "example2/security.txt"},
//	}
//	service, err := pagehandler.NewService(repo, storage, pagehandler.ServiceConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	info, content, err := service.Get(ctx, routes["example2.com"]["/security.txt"])
//
// See the http package for the request handler, the config package for
// loading route tables from configuration, and the database package for the
// PostgreSQL and SQLite metadata backends.
package pagehandler
