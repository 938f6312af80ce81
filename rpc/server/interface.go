package server

import (
	"github.com/crmvault/crmvault/lib/kv"
	"github.com/crmvault/crmvault/lib/vault"
	"github.com/crmvault/crmvault/rpc/common"
)

// ShardEnv bundles the resources one shard serves. Store is always set;
// Vault is set only for vault shards.
type ShardEnv struct {
	Store kv.IDocumentStore
	Vault vault.IVault
}

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response
	// It takes a Message and the shard environment as parameters.
	// If an error occurs, it is set in the response
	Handle(req *common.Message, env ShardEnv) (resp *common.Message)
}
