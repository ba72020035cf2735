package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed index.sql
var indexSQL string

//go:embed nodes.sql
var nodesSQL string

//go:embed edges.sql
var edgesSQL string

// Function lists for verification
var IndexFunctions = []string{
	"init_session_index",
	"upsert_session_document",
	"select_session_documents_by_similarity",
	"count_session_documents",
	"drop_session_index",
}

var NodesFunctions = []string{
	"init_graph_nodes",
	"upsert_graph_node",
	"select_graph_node",
	"select_all_graph_nodes",
	"select_graph_nodes_by_search",
	"delete_graph_node",
	"delete_all_graph_nodes",
	"count_graph_nodes",
}

var EdgesFunctions = []string{
	"init_graph_edges",
	"upsert_graph_edge",
	"select_all_graph_edges",
	"select_graph_edges_of_node",
	"select_graph_neighborhood",
	"select_graph_neighbors",
	"delete_all_graph_edges",
	"count_graph_edges",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadIndexSql loads the session index SQL functions
func LoadIndexSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "index", indexSQL, IndexFunctions, force)
}

// LoadNodesSql loads the graph node SQL functions
func LoadNodesSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "nodes", nodesSQL, NodesFunctions, force)
}

// LoadEdgesSql loads the graph edge SQL functions
func LoadEdgesSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "edges", edgesSQL, EdgesFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadIndexSql(db, force); err != nil {
		return err
	}

	if err := LoadNodesSql(db, force); err != nil {
		return err
	}

	if err := LoadEdgesSql(db, force); err != nil {
		return err
	}

	return nil
}

// loadFunctions executes script unless force is false and all functions exist already
func loadFunctions(db *sql.DB, name string, script string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(script)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
