package main

import (
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/JustinBeckwith/flem/pkg/lib/healthserver"
)

// dial connects to a local health endpoint. It only ever listens on a
// developer machine, so the connection is plaintext.
func dial(addr string) (*grpc.ClientConn, error) {
	if strings.TrimSpace(addr) == "" {
		addr = healthserver.DefaultAddress
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func grpcCode(err error) codes.Code {
	st, ok := status.FromError(err)
	if !ok {
		return codes.Unknown
	}
	return st.Code()
}
