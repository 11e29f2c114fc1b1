package network

import (
	"errors"
	"testing"

	"github.com/magiconair/properties/assert"

	"branchstore/configs"
	"branchstore/utils"
)

func TestEncodeCommands(t *testing.T) {
	cmd, err := Encode(CreateCustomer{Username: "mia", Name: "Mia Solis", Address: "Av. Norte 12", Card: 5500123412341234})
	assert.Equal(t, nil, err)
	assert.Equal(t, "create_cliente|mia|Mia Solis|Av. Norte 12|5500123412341234", cmd)

	cmd, err = Encode(CreateArticle{Code: 42, Name: "Lamp", Price: 19.5, BranchID: 3})
	assert.Equal(t, nil, err)
	assert.Equal(t, "create_articulo|42|Lamp|19.5|3", cmd)

	cmd, err = Encode(CreateGuide{CustomerID: 7, ArticleID: 9, BranchID: 2, Serial: 2101,
		Amount: 19.5, PurchaseTS: "2024-05-01 10:30:00"})
	assert.Equal(t, nil, err)
	assert.Equal(t, "create_guia_envio|7|9|2|2101|19.5|2024-05-01 10:30:00", cmd)
}

func TestEncodeDeterministic(t *testing.T) {
	// Peers byte-compare commands during the vote, so re-encoding the same
	// operation must reproduce the exact bytes.
	op := UpdateArticle{Code: 42, Name: "Lamp", Price: 21}
	a, err := Encode(op)
	assert.Equal(t, nil, err)
	b, err := Encode(op)
	assert.Equal(t, nil, err)
	assert.Equal(t, a, b)

	decoded, err := Decode(a)
	assert.Equal(t, nil, err)
	c, err := Encode(decoded)
	assert.Equal(t, nil, err)
	assert.Equal(t, a, c)
}

func TestEncodeRejectsDelimiter(t *testing.T) {
	_, err := Encode(CreateCustomer{Username: "mia|admin", Name: "x", Address: "y", Card: 1})
	configs.Assert(errors.Is(err, utils.ErrProtocol), "a field holding the delimiter must be rejected")
}

func TestDecodeRoundTrip(t *testing.T) {
	ops := []Op{
		CreateCustomer{Username: "mia", Name: "Mia", Address: "Calle 1", Card: 10},
		UpdateCustomer{Username: "mia", Name: "Mia S", Address: "Calle 2", Card: 11},
		ActivateCustomer{Username: "mia"},
		DeactivateCustomer{Username: "mia"},
		CreateArticle{Code: 1, Name: "Lamp", Price: 9.99, BranchID: 1},
		UpdateArticle{Code: 1, Name: "Lamp XL", Price: 14.5},
		RestockArticle{Code: 1},
		DeactivateArticle{Code: 1},
		CreateGuide{CustomerID: 1, ArticleID: 1, BranchID: 1, Serial: 77, Amount: 9.99,
			PurchaseTS: "2024-05-01 10:30:00"},
	}
	for _, op := range ops {
		cmd, err := Encode(op)
		assert.Equal(t, nil, err)
		back, err := Decode(cmd)
		assert.Equal(t, nil, err)
		assert.Equal(t, op, back)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, cmd := range []string{
		"drop_table|x",
		"create_cliente|mia|only-three|fields",
		"create_cliente|mia|Mia|Calle 1|not-a-number",
		"restock_articulo|xyz",
		"create_guia_envio|1|2|3",
	} {
		_, err := Decode(cmd)
		configs.Assert(errors.Is(err, utils.ErrProtocol), "malformed command accepted: "+cmd)
	}
}

func TestConsensusMessage(t *testing.T) {
	msg := ConsensusMsg(configs.StartConsensus, 4, "restock_articulo|42")
	assert.Equal(t, "start_consensus-4|restock_articulo|42", msg)
	sender, command, err := ParseConsensus(msg)
	assert.Equal(t, nil, err)
	assert.Equal(t, 4, sender)
	assert.Equal(t, "restock_articulo|42", command)

	// The command may itself contain pipes; only the first one splits.
	msg = ConsensusMsg(configs.ContinueConsensus, 2, "create_cliente|mia|Mia|Calle 1|10")
	sender, command, err = ParseConsensus(msg)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, sender)
	assert.Equal(t, "create_cliente|mia|Mia|Calle 1|10", command)

	_, _, err = ParseConsensus("start_consensus|no-sender-id")
	configs.Assert(errors.Is(err, utils.ErrProtocol), "message without sender id accepted")
	_, _, err = ParseConsensus("start_consensus-7")
	configs.Assert(errors.Is(err, utils.ErrProtocol), "message without command accepted")
}

func TestNewMasterMessage(t *testing.T) {
	msg := NewMasterMsg(5, 2)
	assert.Equal(t, "new_master_node|5|2", msg)
	oldID, newID, err := ParseNewMaster(msg)
	assert.Equal(t, nil, err)
	assert.Equal(t, 5, oldID)
	assert.Equal(t, 2, newID)

	_, _, err = ParseNewMaster("new_master_node|5")
	configs.Assert(errors.Is(err, utils.ErrProtocol), "truncated master change accepted")
}
