package server

import (
	"encoding/json"
	"fmt"

	"github.com/crmvault/crmvault/lib/records"
	"github.com/crmvault/crmvault/rpc/common"
)

// NewVaultServerAdapter creates the adapter for vault operations. With this
// adapter the serving process runs the whole insert protocol, so remote
// writers never race on the lock check.
func NewVaultServerAdapter() IRPCServerAdapter {
	return &vaultServerAdapterImpl{}
}

type vaultServerAdapterImpl struct{}

func (adapter *vaultServerAdapterImpl) Handle(req *common.Message, env ShardEnv) *common.Message {
	// Check for nil vault
	if env.Vault == nil {
		return common.NewErrorResponse("handler: vault is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTVltInsert:
		entity, err := records.ParseEntityType(req.Entity)
		if err != nil {
			return common.NewInsertResponse(0, err)
		}
		var batch []records.Record
		if err := json.Unmarshal(req.Value, &batch); err != nil {
			return common.NewInsertResponse(0, fmt.Errorf("decode batch: %w", err))
		}
		inserted, err := env.Vault.InsertWithDedup(entity, batch)
		return common.NewInsertResponse(uint64(inserted), err)

	case common.MsgTVltRemove:
		entity, err := records.ParseEntityType(req.Entity)
		if err != nil {
			return common.NewRemoveResponse(err)
		}
		return common.NewRemoveResponse(env.Vault.RemoveRecord(entity, req.Key))

	case common.MsgTVltClear:
		return common.NewClearResponse(env.Vault.ClearAll())

	case common.MsgTVltDocument:
		doc, err := env.Vault.Document()
		if err != nil {
			return common.NewDocumentResponse(nil, err)
		}
		encoded, err := records.EncodeDocument(doc)
		return common.NewDocumentResponse(encoded, err)

	case common.MsgTVltStatus:
		lastSync, syncInProgress, err := env.Vault.Status()
		return common.NewStatusResponse(lastSync, syncInProgress, err)

	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC VaultAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}
