/**
 *
 * 数组实现的双端队列，元素为管网 arena 中的节点/管道下标
 * 拓扑排序和广度优先遍历都只需要在两端增删，数组具有更好的局部性
 *
 */

package deque

type Deque interface {
	// 队列的长度
	Size() int

	// 获取队列中对应下标的元素，0 为队首
	Get(i int) int

	// 正向遍历
	Traverse(f func(i int, item int))

	// 在队列结尾增加一个元素
	AddLast(item int)

	// 在队列结尾删除一个元素
	RemoveLast() (int, bool)

	// 在队列头部增加一个元素
	AddFirst(item int)

	// 在队列头部删除一个元素
	RemoveFirst() (int, bool)

	IsEmpty() bool
}
