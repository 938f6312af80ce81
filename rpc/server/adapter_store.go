package server

import (
	"fmt"

	"github.com/crmvault/crmvault/rpc/common"
)

// NewStoreServerAdapter creates the adapter for raw key-value operations
func NewStoreServerAdapter() IRPCServerAdapter {
	return &storeServerAdapterImpl{}
}

type storeServerAdapterImpl struct{}

func (adapter *storeServerAdapterImpl) Handle(req *common.Message, env ShardEnv) *common.Message {
	// Check for nil store
	if env.Store == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTKVSet:
		err := env.Store.Set(req.Key, req.Value)
		return common.NewSetResponse(err)
	case common.MsgTKVGet:
		val, loaded, err := env.Store.Get(req.Key)
		return common.NewGetResponse(val, loaded, err)
	case common.MsgTKVDelete:
		err := env.Store.Delete(req.Key)
		return common.NewDeleteResponse(err)
	case common.MsgTKVHas:
		loaded, err := env.Store.Has(req.Key)
		return common.NewHasResponse(loaded, err)
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC StoreAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}
