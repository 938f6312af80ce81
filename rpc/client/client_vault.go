package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/crmvault/crmvault/lib/records"
	"github.com/crmvault/crmvault/lib/vault"
	"github.com/crmvault/crmvault/rpc/common"
	"github.com/crmvault/crmvault/rpc/serializer"
	"github.com/crmvault/crmvault/rpc/transport"
)

// NewRPCVault creates a new RPC vault client
// The function takes a shard ID, a config, a transport and a serializer as parameters
// It returns a vault.IVault and an error
func NewRPCVault(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (vault.IVault, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC vault
	v := rpcVault{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the RPC vault
	return &v, nil
}

type rpcVault struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the vault package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcVault) InsertWithDedup(entity records.EntityType, batch []records.Record) (int, error) {
	encoded, err := json.Marshal(batch)
	if err != nil {
		return 0, vault.NewError(vault.FailStoreIO, fmt.Sprintf("encode batch: %v", err))
	}

	req := common.NewInsertRequest(string(entity), encoded)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return 0, toVaultError(resp, err)
	}
	return int(resp.Count), nil
}

func (i *rpcVault) RemoveRecord(entity records.EntityType, id string) error {
	req := common.NewRemoveRequest(string(entity), id)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return toVaultError(resp, err)
	}
	return nil
}

func (i *rpcVault) ClearAll() error {
	req := common.NewClearRequest()
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return toVaultError(resp, err)
	}
	return nil
}

func (i *rpcVault) Document() (records.StorageDocument, error) {
	req := common.NewDocumentRequest()
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return records.StorageDocument{}, toVaultError(resp, err)
	}

	doc, err := records.DecodeDocument(resp.Value)
	if err != nil {
		return records.StorageDocument{}, vault.NewError(vault.FailStoreIO, err.Error())
	}
	return doc, nil
}

func (i *rpcVault) Status() (lastSync int64, syncInProgress bool, err error) {
	req := common.NewStatusRequest()
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return 0, false, toVaultError(resp, err)
	}
	return resp.Ts, resp.Ok, nil
}

// Close closes the underlying transport
func (i *rpcVault) Close() error {
	return i.transport.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// toVaultError rebuilds the typed vault error from a wire error message so
// CodeOf works on the client exactly as it does locally. Transport-level
// failures (resp is nil) classify as StoreIO.
func toVaultError(resp *common.Message, err error) error {
	if resp == nil || resp.Err == "" {
		return vault.NewError(vault.FailStoreIO, err.Error())
	}

	for _, code := range []vault.FailCode{
		vault.FailContention,
		vault.FailStoreIO,
		vault.FailNotFound,
		vault.FailInvalidEntity,
	} {
		if strings.Contains(resp.Err, fmt.Sprintf("(code %s)", code)) {
			return vault.NewError(code, resp.Err)
		}
	}
	return vault.NewError(vault.FailStoreIO, resp.Err)
}
