package client

import (
	"io"

	"github.com/crmvault/crmvault/lib/kv"
	"github.com/crmvault/crmvault/rpc/common"
	"github.com/crmvault/crmvault/rpc/serializer"
	"github.com/crmvault/crmvault/rpc/transport"
)

// rpcStoreFeatures are the operations that work over RPC. Change
// subscriptions and snapshots stay on the serving side.
const rpcStoreFeatures = kv.FeatureSet | kv.FeatureGet | kv.FeatureDelete | kv.FeatureHas

// NewRPCStore creates a new RPC store
// The function takes a shard ID, a config, a transport and a serializer as parameters
// It returns a kv.IDocumentStore and an error
func NewRPCStore(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (kv.IDocumentStore, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC store
	s := rpcStore{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the RPC store
	return &s, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the kv package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Set(key string, value []byte) (err error) {
	req := common.NewSetRequest(key, value)
	_, err = invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	return err
}

func (i *rpcStore) Get(key string) (value []byte, loaded bool, err error) {
	req := common.NewGetRequest(key)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Ok, nil
}

func (i *rpcStore) Delete(key string) (err error) {
	req := common.NewDeleteRequest(key)
	_, err = invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	return err
}

func (i *rpcStore) Has(key string) (loaded bool, err error) {
	req := common.NewHasRequest(key)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

// Subscribe is not available over RPC
func (i *rpcStore) Subscribe(string, kv.ChangeFunc) (string, error) {
	return "", kv.NewError(kv.RetCUnsupportedOperation,
		"change subscriptions are not available over rpc")
}

// Unsubscribe is not available over RPC
func (i *rpcStore) Unsubscribe(string) error {
	return kv.NewError(kv.RetCUnsupportedOperation,
		"change subscriptions are not available over rpc")
}

// Save is not available over RPC, snapshots belong to the serving process
func (i *rpcStore) Save(io.Writer) error {
	return kv.NewError(kv.RetCUnsupportedOperation,
		"snapshots are not available over rpc")
}

// Load is not available over RPC, snapshots belong to the serving process
func (i *rpcStore) Load(io.Reader) error {
	return kv.NewError(kv.RetCUnsupportedOperation,
		"snapshots are not available over rpc")
}

func (i *rpcStore) SupportsFeature(feature kv.Feature) bool {
	return rpcStoreFeatures&feature == feature
}

func (i *rpcStore) Close() error {
	return i.transport.Close()
}
