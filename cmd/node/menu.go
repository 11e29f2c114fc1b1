package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"branchstore/network"
	"branchstore/network/replica"
)

var stdin = bufio.NewScanner(os.Stdin)

func readLine(prompt string) string {
	fmt.Print(prompt)
	if !stdin.Scan() {
		return ""
	}
	return strings.TrimSpace(stdin.Text())
}

func readInt(prompt string) (int64, bool) {
	n, err := strconv.ParseInt(readLine(prompt), 10, 64)
	if err != nil {
		fmt.Println("\n>> Not a number. Try again.")
		return 0, false
	}
	return n, true
}

func readFloat(prompt string) (float64, bool) {
	f, err := strconv.ParseFloat(readLine(prompt), 64)
	if err != nil {
		fmt.Println("\n>> Not a number. Try again.")
		return 0, false
	}
	return f, true
}

func report(err error) {
	if err != nil {
		fmt.Printf("\n>> Error: %v\n", err)
	}
}

func mainMenu(stmt *replica.Context) {
	for {
		fmt.Println("\n=== Main Menu ===")
		fmt.Println("1. Customer Operations")
		fmt.Println("2. Article Operations")
		fmt.Println("3. Shipping Guide Operations")
		fmt.Println("4. Branch Status")
		fmt.Println("0. Quit")
		switch readLine(">> Enter your choice: ") {
		case "1":
			customerMenu(stmt)
		case "2":
			articleMenu(stmt)
		case "3":
			guideMenu(stmt)
		case "4":
			renderBranches(stmt.Registry.Branches())
		case "0":
			return
		default:
			fmt.Println("\n>> Invalid choice. Try again.")
		}
	}
}

func customerMenu(stmt *replica.Context) {
	for {
		fmt.Println("\n=== Customer Operations ===")
		fmt.Println("1. Create Customer")
		fmt.Println("2. List Customers")
		fmt.Println("3. Update Customer")
		fmt.Println("4. Activate Customer")
		fmt.Println("5. Deactivate Customer")
		fmt.Println("0. Back to Main Menu")
		switch readLine(">> Enter your choice: ") {
		case "1":
			username := readLine(">> Enter the username: ")
			name := readLine(">> Enter the name: ")
			address := readLine(">> Enter the address: ")
			card, ok := readInt(">> Enter the card number: ")
			if !ok {
				continue
			}
			report(stmt.Manager.Submit(network.CreateCustomer{
				Username: username, Name: name, Address: address, Card: card}))
		case "2":
			renderCustomers(stmt.Store.Customers())
		case "3":
			username := readLine(">> Enter the username of the customer to update: ")
			name := readLine(">> Enter the new name: ")
			address := readLine(">> Enter the new address: ")
			card, ok := readInt(">> Enter the new card number: ")
			if !ok {
				continue
			}
			report(stmt.Manager.Submit(network.UpdateCustomer{
				Username: username, Name: name, Address: address, Card: card}))
		case "4":
			username := readLine(">> Enter the username of the customer to activate: ")
			report(stmt.Manager.Submit(network.ActivateCustomer{Username: username}))
		case "5":
			username := readLine(">> Enter the username of the customer to deactivate: ")
			report(stmt.Manager.Submit(network.DeactivateCustomer{Username: username}))
		case "0":
			return
		default:
			fmt.Println("\n>> Invalid choice. Try again.")
		}
	}
}

func articleMenu(stmt *replica.Context) {
	for {
		fmt.Println("\n=== Article Operations ===")
		fmt.Println("1. Create Article")
		fmt.Println("2. List Articles")
		fmt.Println("3. Update Article")
		fmt.Println("4. Restock Article")
		fmt.Println("5. Deactivate Article")
		fmt.Println("0. Back to Main Menu")
		switch readLine(">> Enter your choice: ") {
		case "1":
			code, ok := readInt(">> Enter the article code: ")
			if !ok {
				continue
			}
			name := readLine(">> Enter the article name: ")
			price, ok := readFloat(">> Enter the article price: ")
			if !ok {
				continue
			}
			report(stmt.Manager.Submit(network.CreateArticle{
				Code: code, Name: name, Price: price, BranchID: stmt.Registry.SelfID()}))
		case "2":
			renderArticles(stmt.Store.Articles())
		case "3":
			code, ok := readInt(">> Enter the code of the article to update: ")
			if !ok {
				continue
			}
			name := readLine(">> Enter the new name: ")
			price, ok := readFloat(">> Enter the new price: ")
			if !ok {
				continue
			}
			report(stmt.Manager.Submit(network.UpdateArticle{Code: code, Name: name, Price: price}))
		case "4":
			code, ok := readInt(">> Enter the code of the article to restock: ")
			if !ok {
				continue
			}
			report(stmt.Manager.Submit(network.RestockArticle{Code: code}))
		case "5":
			code, ok := readInt(">> Enter the code of the article to deactivate: ")
			if !ok {
				continue
			}
			report(stmt.Manager.Submit(network.DeactivateArticle{Code: code}))
		case "0":
			return
		default:
			fmt.Println("\n>> Invalid choice. Try again.")
		}
	}
}

func guideMenu(stmt *replica.Context) {
	for {
		fmt.Println("\n=== Shipping Guide Operations ===")
		fmt.Println("1. Purchase")
		fmt.Println("2. List Shipping Guides")
		fmt.Println("0. Back to Main Menu")
		switch readLine(">> Enter your choice: ") {
		case "1":
			username := readLine(">> Enter the customer username: ")
			code, ok := readInt(">> Enter the article code: ")
			if !ok {
				continue
			}
			report(stmt.Manager.Purchase(username, code))
		case "2":
			renderGuides(stmt.Store.Guides())
		case "0":
			return
		default:
			fmt.Println("\n>> Invalid choice. Try again.")
		}
	}
}
