package network

import (
	"strconv"
	"strings"

	"branchstore/configs"
	"branchstore/utils"
)

// The canonical on-wire form of a write is a pipe-delimited command string.
// Field values travel as literal text with no escaping, so they must not
// contain '|'. Every peer byte-compares these strings during the vote, which
// is why encoding has to be deterministic: the same Op always yields the
// same bytes.

// Op is one mutating operation of the replicated dataset.
type Op interface {
	// Verb returns the wire verb of the operation.
	Verb() string
}

type CreateCustomer struct {
	Username string
	Name     string
	Address  string
	Card     int64
}

type UpdateCustomer struct {
	Username string
	Name     string
	Address  string
	Card     int64
}

type ActivateCustomer struct {
	Username string
}

type DeactivateCustomer struct {
	Username string
}

type CreateArticle struct {
	Code     int64
	Name     string
	Price    float64
	BranchID int
}

type UpdateArticle struct {
	Code  int64
	Name  string
	Price float64
}

type RestockArticle struct {
	Code int64
}

type DeactivateArticle struct {
	Code int64
}

type CreateGuide struct {
	CustomerID int64
	ArticleID  int64
	BranchID   int
	Serial     int64
	Amount     float64
	PurchaseTS string
}

func (CreateCustomer) Verb() string     { return "create_cliente" }
func (UpdateCustomer) Verb() string     { return "update_cliente" }
func (ActivateCustomer) Verb() string   { return "activate_cliente" }
func (DeactivateCustomer) Verb() string { return "deactivate_cliente" }
func (CreateArticle) Verb() string      { return "create_articulo" }
func (UpdateArticle) Verb() string      { return "update_articulo" }
func (RestockArticle) Verb() string     { return "restock_articulo" }
func (DeactivateArticle) Verb() string  { return "deactivate_articulo" }
func (CreateGuide) Verb() string        { return "create_guia_envio" }

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// Encode builds the canonical command string for op.
func Encode(op Op) (string, error) {
	var fields []string
	switch v := op.(type) {
	case CreateCustomer:
		fields = []string{v.Username, v.Name, v.Address, strconv.FormatInt(v.Card, 10)}
	case UpdateCustomer:
		fields = []string{v.Username, v.Name, v.Address, strconv.FormatInt(v.Card, 10)}
	case ActivateCustomer:
		fields = []string{v.Username}
	case DeactivateCustomer:
		fields = []string{v.Username}
	case CreateArticle:
		fields = []string{strconv.FormatInt(v.Code, 10), v.Name, formatPrice(v.Price), strconv.Itoa(v.BranchID)}
	case UpdateArticle:
		fields = []string{strconv.FormatInt(v.Code, 10), v.Name, formatPrice(v.Price)}
	case RestockArticle:
		fields = []string{strconv.FormatInt(v.Code, 10)}
	case DeactivateArticle:
		fields = []string{strconv.FormatInt(v.Code, 10)}
	case CreateGuide:
		fields = []string{
			strconv.FormatInt(v.CustomerID, 10),
			strconv.FormatInt(v.ArticleID, 10),
			strconv.Itoa(v.BranchID),
			strconv.FormatInt(v.Serial, 10),
			formatPrice(v.Amount),
			v.PurchaseTS,
		}
	default:
		return "", utils.ProtocolError("unknown operation %T", op)
	}
	for _, f := range fields {
		if strings.Contains(f, "|") {
			return "", utils.ProtocolError("field value %q contains the delimiter", f)
		}
	}
	return op.Verb() + "|" + strings.Join(fields, "|"), nil
}

// Decode parses a canonical command string back into an Op.
func Decode(command string) (Op, error) {
	parts := strings.Split(command, "|")
	verb := parts[0]
	args := parts[1:]
	fail := func() (Op, error) {
		return nil, utils.ProtocolError("wrong arity %v for verb %q", len(args), verb)
	}
	switch verb {
	case "create_cliente", "update_cliente":
		if len(args) != 4 {
			return fail()
		}
		card, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return nil, utils.ProtocolError("bad card %q: %v", args[3], err)
		}
		if verb == "create_cliente" {
			return CreateCustomer{Username: args[0], Name: args[1], Address: args[2], Card: card}, nil
		}
		return UpdateCustomer{Username: args[0], Name: args[1], Address: args[2], Card: card}, nil
	case "activate_cliente":
		if len(args) != 1 {
			return fail()
		}
		return ActivateCustomer{Username: args[0]}, nil
	case "deactivate_cliente":
		if len(args) != 1 {
			return fail()
		}
		return DeactivateCustomer{Username: args[0]}, nil
	case "create_articulo":
		if len(args) != 4 {
			return fail()
		}
		code, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, utils.ProtocolError("bad code %q: %v", args[0], err)
		}
		price, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return nil, utils.ProtocolError("bad price %q: %v", args[2], err)
		}
		branch, err := strconv.Atoi(args[3])
		if err != nil {
			return nil, utils.ProtocolError("bad branch id %q: %v", args[3], err)
		}
		return CreateArticle{Code: code, Name: args[1], Price: price, BranchID: branch}, nil
	case "update_articulo":
		if len(args) != 3 {
			return fail()
		}
		code, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, utils.ProtocolError("bad code %q: %v", args[0], err)
		}
		price, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return nil, utils.ProtocolError("bad price %q: %v", args[2], err)
		}
		return UpdateArticle{Code: code, Name: args[1], Price: price}, nil
	case "restock_articulo", "deactivate_articulo":
		if len(args) != 1 {
			return fail()
		}
		code, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, utils.ProtocolError("bad code %q: %v", args[0], err)
		}
		if verb == "restock_articulo" {
			return RestockArticle{Code: code}, nil
		}
		return DeactivateArticle{Code: code}, nil
	case "create_guia_envio":
		if len(args) != 6 {
			return fail()
		}
		customer, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, utils.ProtocolError("bad customer id %q: %v", args[0], err)
		}
		article, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return nil, utils.ProtocolError("bad article id %q: %v", args[1], err)
		}
		branch, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, utils.ProtocolError("bad branch id %q: %v", args[2], err)
		}
		serial, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return nil, utils.ProtocolError("bad serial %q: %v", args[3], err)
		}
		amount, err := strconv.ParseFloat(args[4], 64)
		if err != nil {
			return nil, utils.ProtocolError("bad amount %q: %v", args[4], err)
		}
		return CreateGuide{CustomerID: customer, ArticleID: article, BranchID: branch,
			Serial: serial, Amount: amount, PurchaseTS: args[5]}, nil
	default:
		return nil, utils.ProtocolError("unknown verb %q", verb)
	}
}

// ConsensusMsg builds "start_consensus-<id>|<command>" or its continue
// counterpart. The -<id> suffix is authoritative: a recipient may see the
// continue before the start and has no other way to learn the sender.
func ConsensusMsg(mark string, nodeID int, command string) string {
	return mark + "-" + strconv.Itoa(nodeID) + "|" + command
}

// ParseConsensus splits a start/continue message into sender id and command.
func ParseConsensus(data string) (senderID int, command string, err error) {
	head := strings.SplitN(data, "|", 2)
	if len(head) != 2 {
		return 0, "", utils.ProtocolError("consensus message %q has no command", data)
	}
	idPart := strings.SplitN(head[0], "-", 2)
	if len(idPart) != 2 {
		return 0, "", utils.ProtocolError("consensus message %q has no sender id", data)
	}
	senderID, err = strconv.Atoi(idPart[1])
	if err != nil {
		return 0, "", utils.ProtocolError("bad sender id in %q: %v", data, err)
	}
	return senderID, head[1], nil
}

// NewMasterMsg builds "new_master_node|<old>|<new>".
func NewMasterMsg(oldID, newID int) string {
	return configs.NewMasterNode + "|" + strconv.Itoa(oldID) + "|" + strconv.Itoa(newID)
}

// ParseNewMaster splits a master-change broadcast.
func ParseNewMaster(data string) (oldID, newID int, err error) {
	parts := strings.Split(data, "|")
	if len(parts) != 3 || parts[0] != configs.NewMasterNode {
		return 0, 0, utils.ProtocolError("bad master change message %q", data)
	}
	oldID, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, utils.ProtocolError("bad old master id in %q: %v", data, err)
	}
	newID, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, utils.ProtocolError("bad new master id in %q: %v", data, err)
	}
	return oldID, newID, nil
}
