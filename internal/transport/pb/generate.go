// Package pb holds the gRPC bindings for addmarkers.v1.MarkerService.
//
// The service only carries protobuf well-known types, so protoc-gen-go emits
// no message code and the package consists of the service bindings alone.
package pb

//go:generate protoc -I ../../../proto --go-grpc_out=. --go-grpc_opt=paths=source_relative addmarkers/v1/markers.proto
