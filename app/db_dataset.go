package app

import (
	"github.com/vistream/vistream/vision"
)

type DBDataset struct {vision.Dataset}
type DBItem struct {
	vision.Item
	ID int
	loaded bool
}

const DatasetQuery = "SELECT id, name, type, data_type FROM datasets"

func datasetListHelper(rows *Rows) []*DBDataset {
	datasets := []*DBDataset{}
	for rows.Next() {
		var ds DBDataset
		rows.Scan(&ds.ID, &ds.Name, &ds.Type, &ds.DataType)
		datasets = append(datasets, &ds)
	}
	return datasets
}

func ListDatasets() []*DBDataset {
	rows := db.Query(DatasetQuery)
	return datasetListHelper(rows)
}

func GetDataset(id int) *DBDataset {
	rows := db.Query(DatasetQuery + " WHERE id = ?", id)
	datasets := datasetListHelper(rows)
	if len(datasets) == 1 {
		return datasets[0]
	} else {
		return nil
	}
}

func NewDataset(name string, t string, dataType vision.DataType) *DBDataset {
	res := db.Exec("INSERT INTO datasets (name, type, data_type) VALUES (?, ?, ?)", name, t, dataType)
	return GetDataset(res.LastInsertId())
}

const ItemQuery = "SELECT id, dataset_id, k, ext, format, metadata FROM items"

func itemListHelper(rows *Rows) []*DBItem {
	var items []*DBItem
	for rows.Next() {
		var item DBItem
		rows.Scan(&item.ID, &item.Dataset.ID, &item.Key, &item.Ext, &item.Format, &item.Metadata)
		items = append(items, &item)
	}
	return items
}

func (ds *DBDataset) ListItems() []*DBItem {
	rows := db.Query(ItemQuery + " WHERE dataset_id = ? ORDER BY id", ds.ID)
	items := itemListHelper(rows)
	// populate dataset
	for _, item := range items {
		item.Dataset = ds.Dataset
		item.loaded = true
	}
	return items
}

func GetItem(id int) *DBItem {
	rows := db.Query(ItemQuery + " WHERE id = ?", id)
	items := itemListHelper(rows)
	if len(items) == 1 {
		return items[0]
	} else {
		return nil
	}
}

// AddItem upserts: re-adding a key replaces the stored row.
func (ds *DBDataset) AddItem(key string, ext string, format string, metadata string) *DBItem {
	db.Exec(
		"INSERT INTO items (dataset_id, k, ext, format, metadata) VALUES (?, ?, ?, ?, ?) ON CONFLICT(dataset_id, k) DO UPDATE SET ext = ?, format = ?, metadata = ?",
		ds.ID, key, ext, format, metadata, ext, format, metadata,
	)
	return ds.GetItem(key)
}

func (ds *DBDataset) GetItem(key string) *DBItem {
	rows := db.Query(ItemQuery + " WHERE dataset_id = ? AND k = ? LIMIT 1", ds.ID, key)
	items := itemListHelper(rows)
	if len(items) == 1 {
		return items[0]
	} else {
		return nil
	}
}

func (ds *DBDataset) WriteItem(key string, data vision.Data) *DBItem {
	ext, format := data.GetDefaultExtAndFormat()
	item := ds.AddItem(key, ext, format, string(vision.JsonMarshal(data.GetMetadata())))
	item.UpdateData(data)
	return item
}

func (ds *DBDataset) Delete() {
	ds.Dataset.Remove()
	db.Exec("DELETE FROM items WHERE dataset_id = ?", ds.ID)
	db.Exec("DELETE FROM datasets WHERE id = ?", ds.ID)
}

func (item *DBItem) Delete() {
	item.Item.Remove()
	db.Exec("DELETE FROM items WHERE id = ?", item.ID)
}

func (item *DBItem) Load() {
	if item.loaded {
		return
	}
	item.Dataset = GetDataset(item.Dataset.ID).Dataset
	item.loaded = true
}

// Set format/metadata based on the stored file.
func (item *DBItem) SetMetadata() error {
	item.Load()
	format, metadata, err := vision.DataImpls[item.Dataset.DataType].GetDefaultMetadata(item.Fname())
	if err != nil {
		return err
	}
	item.Format = format
	item.Metadata = metadata
	db.Exec("UPDATE items SET format = ?, metadata = ? WHERE id = ?", item.Format, item.Metadata, item.ID)
	return nil
}
