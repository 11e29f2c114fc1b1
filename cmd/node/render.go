package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"branchstore/configs"
	"branchstore/storage"
)

// Table rendering for the listing menu entries.

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	return table
}

func renderCustomers(rows []storage.Customer) {
	if len(rows) == 0 {
		fmt.Println("\n>> No customers registered yet.")
		return
	}
	table := newTable([]string{"ID", "Username", "Name", "Address", "Card", "Status"})
	for _, c := range rows {
		table.Append([]string{
			strconv.FormatInt(c.ID, 10), c.Username, c.Name, c.Address,
			strconv.FormatInt(c.Card, 10), c.Status,
		})
	}
	table.Render()
}

func renderArticles(rows []storage.Article) {
	if len(rows) == 0 {
		fmt.Println("\n>> No articles registered yet.")
		return
	}
	table := newTable([]string{"ID", "Branch", "Code", "Name", "Price", "Stock"})
	for _, a := range rows {
		table.Append([]string{
			strconv.FormatInt(a.ID, 10), strconv.Itoa(a.BranchID),
			strconv.FormatInt(a.Code, 10), a.Name,
			strconv.FormatFloat(a.Price, 'f', 2, 64), a.Stock,
		})
	}
	table.Render()
}

func renderGuides(rows []storage.Guide) {
	if len(rows) == 0 {
		fmt.Println("\n>> No shipping guides registered yet.")
		return
	}
	table := newTable([]string{"ID", "Serial", "Customer", "Article", "Branch", "Amount", "Purchased"})
	for _, g := range rows {
		table.Append([]string{
			strconv.FormatInt(g.ID, 10), strconv.FormatInt(g.Serial, 10),
			strconv.FormatInt(g.CustomerID, 10), strconv.FormatInt(g.ArticleID, 10),
			strconv.Itoa(g.BranchID), strconv.FormatFloat(g.Amount, 'f', 2, 64), g.PurchaseTS,
		})
	}
	table.Render()
}

func renderBranches(rows []configs.Branch) {
	table := newTable([]string{"ID", "Address", "Role", "Status", "Capacity", "Used"})
	for _, b := range rows {
		role := "replica"
		if b.IsMaster {
			role = "master"
		}
		status := "down"
		if b.Status == 1 {
			status = "up"
		}
		table.Append([]string{
			strconv.Itoa(b.ID), b.Addr, role, status,
			strconv.Itoa(b.Capacity), strconv.Itoa(b.Used),
		})
	}
	table.Render()
}
